// AngelaMos | 2026
// voucher_test.go

package loyalty

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

func TestGenerateShape(t *testing.T) {
	g := NewCodeGenerator("POIN")

	for range 1000 {
		code := g.Generate()
		assert.Len(t, code, len("POIN-")+codeLength)
		assert.True(t, strings.HasPrefix(code, "POIN-"))
		assert.True(t, ValidCode("POIN", code), "bad code %q", code)
	}
}

func TestGenerateDefaultsPrefix(t *testing.T) {
	g := NewCodeGenerator("")
	assert.Equal(t, DefaultVoucherPrefix, g.Prefix())
	assert.True(t, ValidCode(DefaultVoucherPrefix, g.Generate()))
}

func TestGenerateUniqueAcrossManyDraws(t *testing.T) {
	g := NewCodeGenerator("POIN")
	ctx := context.Background()
	seen := make(map[string]struct{}, 1000)

	exists := func(_ context.Context, code string) (bool, error) {
		_, ok := seen[code]
		return ok, nil
	}

	for range 1000 {
		code, err := g.GenerateUnique(ctx, exists, DefaultVoucherMaxAttempts)
		require.NoError(t, err)
		seen[code] = struct{}{}
	}

	assert.Len(t, seen, 1000)
}

func TestGenerateUniqueGivesUpAfterMaxAttempts(t *testing.T) {
	g := NewCodeGenerator("POIN")
	calls := 0

	always := func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := g.GenerateUnique(context.Background(), always, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrGenerationFailure)
	assert.Equal(t, 10, calls)
}

func TestGenerateUniqueRetriesCollision(t *testing.T) {
	g := &CodeGenerator{prefix: "POIN"}
	draws := []int{0, 0, 1}
	i := 0
	g.intn = func(int) int {
		v := draws[min(i/codeLength, len(draws)-1)]
		i++
		return v
	}

	exists := func(_ context.Context, code string) (bool, error) {
		return code == "POIN-AAAAAAAA", nil
	}

	code, err := g.GenerateUnique(context.Background(), exists, 10)
	require.NoError(t, err)
	assert.Equal(t, "POIN-BBBBBBBB", code)
}

func TestGenerateUniquePropagatesLookupError(t *testing.T) {
	g := NewCodeGenerator("POIN")
	boom := errors.New("db down")

	_, err := g.GenerateUnique(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	}, 10)

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrGenerationFailure)
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("POIN", "POIN-AB12CD34"))
	assert.False(t, ValidCode("POIN", "POIN-ab12cd34"))
	assert.False(t, ValidCode("POIN", "POIN-AB12CD3"))
	assert.False(t, ValidCode("POIN", "LUNAK-AB12CD34"))
	assert.False(t, ValidCode("POIN", "POINAB12CD34"))
}
