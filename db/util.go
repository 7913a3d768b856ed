package db

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"syscall"
)

// Hash returns the binary digest of buf using algo.
func Hash(algo string, buf []byte) (hash []byte, err error) {
	switch algo {
	case "sha256":
		d := sha256.Sum256(buf)
		hash = d[:]
	case "sha512":
		d := sha512.Sum512(buf)
		hash = d[:]
	default:
		err = fmt.Errorf("%w: %s", syscall.ENOSYS, algo)
	}
	return
}

func bin2hex(buf []byte) string {
	return hex.EncodeToString(buf)
}

// GetGID returns the current goroutine id.  Only used for log
// output.
func GetGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

func canstat(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func mkdir(dir string) (err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return
		}
	}
	return
}
