package internal

import (
	"bytes"
	"testing"

	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSoraDocument(t *testing.T) {
	doc := newTestDocument(t, fixtureWords, testConfig())

	assert.Equal(t, n64.FormatNative, doc.Format)
	assert.Equal(t, 0x2000, doc.Size)
	assert.Equal(t, uint32(testEntrypoint), doc.EntryAddr)
	assert.Equal(t, "N64SORA TEST", doc.Header.Name())
	assert.Equal(t, "6102 / 7101", doc.CIC.Name())
	if label := doc.SymMap.GetLabelName(testEntrypoint); assert.NotNil(t, label) {
		assert.Equal(t, "entrypoint", *label)
	}

	t.Run("address mapping", func(t *testing.T) {
		off, ok := doc.RomOffset(0x80000404)
		assert.True(t, ok)
		assert.Equal(t, uint32(0x1004), off)
		assert.Equal(t, uint32(0x80000404), doc.Address(off))

		_, ok = doc.RomOffset(testEntrypoint - 4)
		assert.False(t, ok)
		_, ok = doc.RomOffset(testEntrypoint + 0x1000)
		assert.False(t, ok)
		_, ok = doc.RomOffset(testEntrypoint + 0xFFC)
		assert.True(t, ok)
	})

	t.Run("words", func(t *testing.T) {
		w, ok := doc.Word(0x80000404)
		assert.True(t, ok)
		assert.Equal(t, uint32(0x2508E940), w)

		assert.Equal(t, fixtureWords, doc.Words(testEntrypoint, uint32(len(fixtureWords)*4)))
		assert.Len(t, doc.Words(testEntrypoint, 0x10000), 0x400)
		assert.Nil(t, doc.Words(0x80000000, 4))
	})
}

func TestNewSoraDocumentFormats(t *testing.T) {
	canonical := buildROM(fixtureWords)

	for _, f := range []n64.Format{n64.FormatNative, n64.FormatReversed, n64.FormatHalfSwapped} {
		t.Run(f.String(), func(t *testing.T) {
			raw := encodeAs(f, canonical)
			doc, err := NewSoraDocument("test."+f.String(), raw, testTable(), testConfig(), nil)
			require.NoError(t, err)

			assert.Equal(t, f, doc.Format)
			assert.Equal(t, canonical, doc.ROM())
			assert.Equal(t, fixtureWords[0], f.Word(raw[n64.BootCodeOffset:]))
			// the caller's buffer is left alone
			assert.Equal(t, encodeAs(f, canonical), raw)
		})
	}
}

func TestNewSoraDocumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		table *n64.Table
		stage string
		err   error
	}{
		{"unknown magic", append([]byte{1, 2, 3, 4}, make([]byte, 0x2000)...), testTable(), StageEndian, n64.ErrUnrecognizedFormat},
		{"no magic", []byte{0x80, 0x37}, testTable(), StageEndian, n64.ErrTruncated},
		{"truncated", buildROM(nil)[:0x1800], testTable(), StageHeader, n64.ErrTruncated},
		{"unknown ipl3", buildROM(nil), n64.NewTable(), StageIPL3, n64.ErrUnknownBootROM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewSoraDocument("bad.z64", tt.raw, tt.table, testConfig(), nil)
			assert.Nil(t, doc)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "bad.z64", se.File)
			assert.Equal(t, tt.stage, se.Stage)
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), `"bad.z64": `+tt.stage+": ")
		})
	}
}

func TestDisasm(t *testing.T) {
	doc := newTestDocument(t, fixtureWords, testConfig())

	instr := doc.Disasm(testEntrypoint)
	require.NotNil(t, instr)
	assert.Same(t, instr, doc.Disasm(testEntrypoint))
	assert.Equal(t, "lui", instr.Mnemonic())
	assert.Equal(t, uint32(0x1000), instr.Info.RomOffset)
	assert.Equal(t, "/* 80000400 001000 3C088004 */     lui        t0, (0x80040000 >> 16)", instr.Info.Listing())

	bnez := doc.Disasm(0x80000418)
	assert.True(t, bnez.Info.IsBranch)
	assert.True(t, bnez.Info.IsConditional)
	assert.Equal(t, uint32(0x8000040C), bnez.Info.BranchTarget)

	slot := doc.Disasm(0x8000041C)
	assert.True(t, slot.Info.InDelaySlot)

	jr := doc.Disasm(0x8000042C)
	assert.True(t, jr.Info.IsBranchToRegister)
	assert.Equal(t, int(mips.T2), jr.Info.BranchRegister)

	sp := doc.Disasm(0x80000430)
	assert.Equal(t, "/* 80000430 001030 27BDF330 */      addiu      sp, sp, -0xCD0", sp.Info.Listing())

	assert.Nil(t, doc.Disasm(0x80000000))
	assert.Equal(t, 5, doc.InstrManager.Len())
}

func TestProcessBB(t *testing.T) {
	doc := newTestDocument(t, fixtureWords, testConfig())

	var blocks []BBAnalState
	count := doc.ProcessBB(testEntrypoint, 0, func(state BBAnalState) {
		blocks = append(blocks, state)
	})

	// the conditional bnez does not end the walk, the jr does
	assert.Equal(t, 2, count)
	require.Len(t, blocks, 2)
	assert.Equal(t, uint32(0x80000400), blocks[0].BBAddr)
	assert.Equal(t, uint32(0x8000041C), blocks[0].LastAddr)
	assert.Equal(t, uint32(0x80000418), blocks[0].BranchAddr)
	assert.Len(t, blocks[0].Lines, 8)
	assert.Equal(t, uint32(0x80000420), blocks[1].BBAddr)
	assert.Equal(t, uint32(0x80000430), blocks[1].LastAddr)
	assert.Equal(t, uint32(0x8000042C), blocks[1].BranchAddr)
}

func TestPrintLines(t *testing.T) {
	doc := newTestDocument(t, fixtureWords, testConfig())

	var buf bytes.Buffer
	doc.ProcessBB(testEntrypoint, 0, doc.PrintLines(&buf, true))
	out := buf.String()

	assert.Contains(t, out, "entrypoint:\t// 0x80000400\n")
	assert.Contains(t, out, "loc_0x80000420:\t// 0x80000420\n")
	assert.Contains(t, out, " /* 80000400 001000 3C088004 */     lui        t0, (0x80040000 >> 16)\t; t0 = 0x80040000\n")
	assert.Contains(t, out, "\t; t0 = t0 + -0x16c0\n")
	assert.Contains(t, out, "\t; t1 = 0x5d50\n")
	assert.Contains(t, out, "\t; *(u32*)&mem[t0 + 0x4] = 0x0\n")
	assert.Contains(t, out, "*/* 80000418 001018 1520FFFC */     bnez       t1, -0x4\t; if (t1 != 0x0) goto loc_0x8000040c\n")
	assert.Contains(t, out, "*/* 8000042C 00102C 01400008 */     jr         t2\t; goto *(t2)\n")
}

func TestGetLabelName(t *testing.T) {
	doc := newTestDocument(t, fixtureWords, testConfig())

	assert.Equal(t, "entrypoint", doc.GetLabelName(testEntrypoint))
	assert.Equal(t, "loc_0x80000420", doc.GetLabelName(0x80000420))

	doc.FunManager.CreateNewFunction(0x80000500, 0x20)
	assert.Equal(t, "z_un_80000500", doc.GetLabelName(0x80000500))
	assert.Equal(t, "z_un_80000500__0x8", doc.GetLabelName(0x80000508))
	assert.Equal(t, "loc_0x80000520", doc.GetLabelName(0x80000520))
}
