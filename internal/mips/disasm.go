package mips

// Disassemble decodes one canonical-order word. It never fails: encodings
// outside the supported subset come back as KindUnknown, and supported
// opcodes with a non-zero must-be-zero field come back as KindInvalid.
func Disassemble(word uint32) Instruction {
	if word == 0 {
		return Instruction{Kind: KindNop}
	}

	op := Opcode(word)
	format, ok := op.Format()
	if !ok {
		return errorInstruction(KindUnknown, word)
	}

	switch format {
	case FormatR:
		return disassembleR(word)
	case FormatJ:
		return disassembleJ(op, word)
	case FormatI:
		return disassembleI(op, word)
	}
	return errorInstruction(KindUnknown, word)
}

func errorInstruction(kind Kind, word uint32) Instruction {
	return Instruction{Kind: kind, Opcode: uint32(Opcode(word)), Word: word}
}

func disassembleR(word uint32) Instruction {
	rs := gprField(word, 21)
	rt := gprField(word, 16)
	rd := gprField(word, 11)

	switch Func(word & 0x3F) {
	case FuncJr:
		// rt, rd and the hint field must be zero
		if rt != Zero || rd != Zero || word&0x7C0 != 0 {
			return errorInstruction(KindInvalid, word)
		}
		return Instruction{Kind: KindJr, Rs: rs, Word: word}
	}
	return errorInstruction(KindUnknown, word)
}

func disassembleJ(op Op, word uint32) Instruction {
	target := (word & 0x3FFFFFF) << 2
	switch op {
	case OpJ:
		return Instruction{Kind: KindJ, Target: target, Word: word}
	case OpJal:
		return Instruction{Kind: KindJal, Target: target, Word: word}
	}
	return errorInstruction(KindUnknown, word)
}

func disassembleI(op Op, word uint32) Instruction {
	rs := gprField(word, 21)
	rt := gprField(word, 16)
	imm := word & 0xFFFF

	switch op {
	case OpAddi:
		return Instruction{Kind: KindAddi, Rs: rs, Rt: rt, Imm: imm, Word: word}
	case OpAddiu:
		return Instruction{Kind: KindAddiu, Rs: rs, Rt: rt, Imm: imm, Word: word}
	case OpOri:
		return Instruction{Kind: KindOri, Rs: rs, Rt: rt, Imm: imm, Word: word}
	case OpSw:
		return Instruction{Kind: KindSw, Rs: rs, Rt: rt, Imm: imm, Word: word}
	case OpLui:
		if rs != Zero {
			return errorInstruction(KindInvalid, word)
		}
		return Instruction{Kind: KindLui, Rt: rt, Imm: imm, Word: word}
	case OpBeq:
		if rt == Zero {
			if rs == Zero {
				return Instruction{Kind: KindB, Imm: imm, Word: word}
			}
			return Instruction{Kind: KindBeqz, Rs: rs, Imm: imm, Word: word}
		}
		return Instruction{Kind: KindBeq, Rs: rs, Rt: rt, Imm: imm, Word: word}
	case OpBne:
		if rt == Zero {
			return Instruction{Kind: KindBnez, Rs: rs, Imm: imm, Word: word}
		}
		return Instruction{Kind: KindBne, Rs: rs, Rt: rt, Imm: imm, Word: word}
	}
	return errorInstruction(KindUnknown, word)
}

// DisassembleAll decodes a slice of words.
func DisassembleAll(words []uint32) []Instruction {
	out := make([]Instruction, len(words))
	for i, w := range words {
		out[i] = Disassemble(w)
	}
	return out
}
