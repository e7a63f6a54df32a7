// AngelaMos | 2026
// voucher.go

package loyalty

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8

	DefaultVoucherPrefix      = "POIN"
	DefaultVoucherMaxAttempts = 10
)

// CodeExistsFunc reports whether a voucher code is already persisted.
type CodeExistsFunc func(ctx context.Context, code string) (bool, error)

// CodeGenerator produces voucher codes of the form PREFIX-XXXXXXXX.
// Codes are receipts, not secrets, so math/rand is enough.
type CodeGenerator struct {
	prefix string
	intn   func(n int) int
}

func NewCodeGenerator(prefix string) *CodeGenerator {
	if prefix == "" {
		prefix = DefaultVoucherPrefix
	}
	return &CodeGenerator{
		prefix: prefix,
		//nolint:gosec // G404: voucher codes are not security tokens
		intn: rand.IntN,
	}
}

func (g *CodeGenerator) Prefix() string {
	return g.prefix
}

func (g *CodeGenerator) Generate() string {
	var b strings.Builder
	b.Grow(len(g.prefix) + 1 + codeLength)

	b.WriteString(g.prefix)
	b.WriteByte('-')
	for range codeLength {
		b.WriteByte(codeAlphabet[g.intn(len(codeAlphabet))])
	}

	return b.String()
}

// GenerateUnique draws candidates until exists reports one as unused,
// giving up after maxAttempts draws. The UNIQUE index on rewards.code
// still has the final word.
func (g *CodeGenerator) GenerateUnique(
	ctx context.Context,
	exists CodeExistsFunc,
	maxAttempts int,
) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = DefaultVoucherMaxAttempts
	}

	for range maxAttempts {
		code := g.Generate()

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check voucher code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf(
		"generate voucher code after %d attempts: %w",
		maxAttempts,
		core.ErrGenerationFailure,
	)
}

// ValidCode reports whether code has the shape Generate produces.
func ValidCode(prefix, code string) bool {
	rest, ok := strings.CutPrefix(code, prefix+"-")
	if !ok || len(rest) != codeLength {
		return false
	}

	for i := range len(rest) {
		if strings.IndexByte(codeAlphabet, rest[i]) < 0 {
			return false
		}
	}
	return true
}
