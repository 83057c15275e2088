package pdftext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTextOperatorsTj(t *testing.T) {
	t.Parallel()

	content := `BT /F1 12 Tf 50 792 Td (Hello world) Tj ET`
	require.Equal(t, "Hello world", DecodeTextOperators(content))
}

func TestDecodeTextOperatorsTJArray(t *testing.T) {
	t.Parallel()

	content := `BT [(Hel) -20 (lo) 10 (there)] TJ ET`
	require.Equal(t, "Hel lo there", DecodeTextOperators(content))
}

func TestDecodeTextOperatorsQuote(t *testing.T) {
	t.Parallel()

	content := `BT (next line of text) ' ET`
	require.Equal(t, "next line of text", DecodeTextOperators(content))
}

func TestDecodeTextOperatorsEscapes(t *testing.T) {
	t.Parallel()

	out := DecodeTextOperators(`(a \(quoted\) word) Tj`)
	require.Equal(t, "a (quoted) word", out)
}

func TestDecodeTextOperatorsIgnoresNonTextStrings(t *testing.T) {
	t.Parallel()

	// A literal consumed by a non text-showing operator is skipped.
	content := `(ICCBased) SC (shown text) Tj`
	require.Equal(t, "shown text", DecodeTextOperators(content))
}

func TestDecodeTextOperatorsEmptyContent(t *testing.T) {
	t.Parallel()

	require.Empty(t, DecodeTextOperators(""))
	require.Empty(t, DecodeTextOperators("BT 0 0 Td ET"))
}
