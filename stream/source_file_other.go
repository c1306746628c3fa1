//go:build !linux && !darwin

package stream

import "os"

func fileAvailable(*os.File) (int, error) {
	return 0, nil
}
