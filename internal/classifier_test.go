package internal

import (
	"testing"

	"github.com/firodj/n64sora/internal/mips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wBranch  = 0x1520FFFC // bnez t1, -0x4
	wJump    = 0x08009730 // j    0x80025CC0
	wJal     = 0x0C009730 // jal  0x80025CC0
	wReturn  = 0x03E00008 // jr   ra
	wFiller  = 0x2508E940 // addiu t0, t0, -0x16C0
	wUnknown = 0x8D080000 // lw   t0, 0x0(t0)
)

// function emits a body with the given branch and jump counts followed by
// "jr ra" and a nop delay slot.
func function(branches, jumps int) []uint32 {
	var words []uint32
	for i := 0; i < branches; i++ {
		words = append(words, wBranch, wFiller)
	}
	for i := 0; i < jumps; i++ {
		words = append(words, wJump, wFiller)
	}
	return append(words, wReturn, 0)
}

func concat(parts ...[]uint32) []uint32 {
	var words []uint32
	for _, p := range parts {
		words = append(words, p...)
	}
	return words
}

func TestClassifyDirectionsAgree(t *testing.T) {
	streams := map[string][]uint32{
		"empty":       nil,
		"one":         function(3, 1),
		"many":        concat(function(3, 1), function(0, 2), function(5, 0)),
		"jal ignored": {wJal, wFiller, wBranch, wReturn, 0},
		"error drops": concat(function(2, 0), []uint32{wBranch, wUnknown}, function(1, 1)),
		"trailing":    concat(function(1, 1), []uint32{wBranch, wJump, wBranch}),
		"delay slot":  {wBranch, wReturn, wBranch, wJump, wReturn, wJump},
		"only errors": {wUnknown, wUnknown},
	}

	for name, words := range streams {
		t.Run(name, func(t *testing.T) {
			instrs := mips.DisassembleAll(words)
			fwd := Classify(instrs, ScanForward, 0)
			rev := Classify(instrs, ScanReverse, 0)
			assert.Equal(t, rev.Branches, fwd.Branches)
			assert.Equal(t, rev.Jumps, fwd.Jumps)
			assert.Equal(t, rev.Verdict, fwd.Verdict)
		})
	}
}

func TestClassifyCounts(t *testing.T) {
	words := concat(function(2, 1), []uint32{wBranch, wUnknown}, function(1, 0), []uint32{wJump})
	c := Classify(mips.DisassembleAll(words), ScanForward, 0)

	// the branch cut off by the unknown word and the trailing jump are dropped
	assert.Equal(t, 3, c.Branches)
	assert.Equal(t, 1, c.Jumps)
	assert.Equal(t, []FunctionSpan{{0, 7}, {10, 13}}, c.Functions)
}

func TestClassifyFunctionSpans(t *testing.T) {
	words := []uint32{wBranch, wBranch, wReturn, 0, wUnknown, wJump, wReturn, 0}
	c := Classify(mips.DisassembleAll(words), ScanForward, 0)

	assert.Equal(t, 2, c.Branches)
	assert.Equal(t, 1, c.Jumps)
	assert.Equal(t, []FunctionSpan{{0, 3}, {5, 7}}, c.Functions)

	// a return as the last word has no delay slot to include
	c = Classify(mips.DisassembleAll([]uint32{wBranch, wReturn}), ScanForward, 0)
	assert.Equal(t, []FunctionSpan{{0, 1}}, c.Functions)
}

func TestClassifyVerdict(t *testing.T) {
	tests := []struct {
		name     string
		words    []uint32
		verdict  string
		evidence bool
	}{
		{"insufficient", function(5, 4), "insufficient evidence", false},
		{"ido", function(6, 4), "IDO", true},
		{"gcc", function(4, 6), "GCC", true},
		{"tie is gcc", function(5, 5), "GCC", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dir := range []ScanDirection{ScanForward, ScanReverse} {
				c := Classify(mips.DisassembleAll(tt.words), dir, 10)
				assert.Equal(t, tt.evidence, c.Evidence, dir.String())
				assert.Equal(t, tt.verdict, c.VerdictString(), dir.String())
			}
		})
	}
}

func TestBootSegmentLength(t *testing.T) {
	const entry = 0x80000400
	tests := []struct {
		name      string
		bssStart  uint32
		available uint32
		want      uint32
	}{
		{"up to bss", 0x8003E940, 0x200000, 0x3E540},
		{"unaligned", 0x80010402, 0x200000, 0x10000},
		{"at least the window", 0x80000800, 0x200000, 0x1000},
		{"no bss", 0, 0x200000, 0x100000},
		{"bss below entry", 0x80000000, 0x200000, 0x100000},
		{"capped at 1 MiB", 0x80200000, 0x400000, 0x100000},
		{"clamped to rom", 0x8003E940, 0x2000, 0x2000},
		{"tiny rom", 0x8003E940, 0x802, 0x800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BootSegmentLength(entry, tt.bssStart, 0x1000, tt.available))
		})
	}
}

func TestDocumentClassify(t *testing.T) {
	var funcs [][]uint32
	for i := 0; i < 4; i++ {
		funcs = append(funcs, function(3, 1))
	}
	doc := newTestDocument(t, concat(funcs...), testConfig())

	res := &EntryResult{BSSStart: 0x80000500}
	c, length := doc.Classify(res)

	assert.Equal(t, uint32(0x1000), length)
	assert.Equal(t, 12, c.Branches)
	assert.Equal(t, 4, c.Jumps)
	assert.Equal(t, "IDO", c.VerdictString())
	require.Len(t, c.Functions, 4)

	funs := doc.FunManager.Functions()
	require.Len(t, funs, 4)
	assert.Equal(t, "entrypoint", funs[0].Name)
	assert.Equal(t, "z_un_80000428", funs[1].Name)
	assert.Equal(t, uint32(10*4), funs[0].Size)
	assert.Equal(t, 3, funs[0].Branches)
	assert.Equal(t, 1, funs[0].Jumps)
	assert.Equal(t, uint32(0x80000428), funs[1].Address)
	assert.Equal(t, "z_un_80000428__0x4", doc.GetLabelName(0x8000042C))

	byName := doc.FunManager.GetByName("entrypoint")
	require.Len(t, byName, 1)
	assert.Equal(t, uint32(0x80000400), byName[0].Address)
	assert.Empty(t, doc.FunManager.GetByName("missing"))
}
