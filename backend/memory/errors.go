package memory

import "fmt"

func errInvalidKeyForm(msg string) error { return fmt.Errorf("memory: %s", msg) }

func errRangeOutOfBounds(msg string) error { return fmt.Errorf("memory: %s", msg) }

func errShortWrite(declared uint64, actual int) error {
	return fmt.Errorf("memory: write short, expect %d actual %d", declared, actual)
}
