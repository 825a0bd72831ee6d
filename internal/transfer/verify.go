package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChecksumError reports an archive whose digest does not match the
// catalogue. Both values are carried for diagnostics.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sha256 mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// VerifySHA256 computes a streaming sha256 over path and compares it to
// the expected hex digest. Callers skip this entirely when the catalogue
// supplies no hash.
func VerifySHA256(ctx context.Context, path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive for verification: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("reading archive for verification: %w", rerr)
		}
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return &ChecksumError{Expected: strings.ToLower(expected), Actual: actual}
	}
	return nil
}
