package backup

import "tagwarden/internal/preflight"

func realStatfs(path string) (uint64, uint64, error) {
	total, err := preflight.TotalBytes(path)
	if err != nil {
		return 0, 0, err
	}
	free, err := preflight.FreeBytes(path)
	if err != nil {
		return 0, 0, err
	}
	return total, free, nil
}
