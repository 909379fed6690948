package trap

// Fault classifies the low 6 bits of a DataAbort/InstructionAbort ISS
// field (ESR D1.10.4 "Instruction/Data Fault Status Code").
type Fault uint8

const (
	FaultAddressSize Fault = iota
	FaultTranslation
	FaultAccessFlag
	FaultPermission
	FaultAlignment
	FaultTlbConflict
	FaultOther
)

// FaultFromISS decodes a Fault from the low 6 bits of esr.
func FaultFromISS(esr uint32) Fault {
	switch v := esr & 0b111111; {
	case v <= 0x03:
		return FaultAddressSize
	case v >= 0x04 && v <= 0x07:
		return FaultTranslation
	case v >= 0x09 && v <= 0x0B:
		return FaultAccessFlag
	case v >= 0x0D && v <= 0x0F:
		return FaultPermission
	case v == 0x21:
		return FaultAlignment
	case v == 0x30:
		return FaultTlbConflict
	default:
		return FaultOther
	}
}

// SyndromeClass is the ESR exception class (bits 31:26).
type SyndromeClass uint8

const (
	ClassUnknown            SyndromeClass = 0x00
	ClassWfiWfe             SyndromeClass = 0x01
	ClassMcrMrc14           SyndromeClass = 0x03
	ClassMcrrMrrc14         SyndromeClass = 0x04
	ClassMcrMrc15           SyndromeClass = 0x05
	ClassLdcStc             SyndromeClass = 0x06
	ClassSimdFp             SyndromeClass = 0x07
	ClassVmrs               SyndromeClass = 0x08
	ClassMrrc               SyndromeClass = 0x0C
	ClassIllegalExecState   SyndromeClass = 0x0E
	ClassSvc                SyndromeClass = 0x15
	ClassHvc                SyndromeClass = 0x16
	ClassSmc                SyndromeClass = 0x17
	ClassMsrMrsSystem       SyndromeClass = 0x18
	ClassInstructionAbortLo SyndromeClass = 0x20
	ClassInstructionAbortEl SyndromeClass = 0x21
	ClassPCAlignmentFault   SyndromeClass = 0x22
	ClassDataAbortLo        SyndromeClass = 0x24
	ClassDataAbortEl        SyndromeClass = 0x25
	ClassSpAlignmentFault   SyndromeClass = 0x26
	ClassTrappedFpu32       SyndromeClass = 0x28
	ClassTrappedFpu64       SyndromeClass = 0x2C
	ClassSError             SyndromeClass = 0x2F
	ClassBreakpointLo       SyndromeClass = 0x30
	ClassBreakpointEl       SyndromeClass = 0x31
	ClassStepLo             SyndromeClass = 0x32
	ClassStepEl             SyndromeClass = 0x33
	ClassWatchpointLo       SyndromeClass = 0x34
	ClassWatchpointEl       SyndromeClass = 0x35
	ClassBrk32              SyndromeClass = 0x38
	ClassBrk64              SyndromeClass = 0x3C
)

// SyndromeKind tags which variant of Syndrome is populated.
type SyndromeKind uint8

const (
	SyndromeOther SyndromeKind = iota
	SyndromeSvc
	SyndromeHvc
	SyndromeSmc
	SyndromeBrk
	SyndromeInstructionAbort
	SyndromeDataAbort
	SyndromeSimple // classes that carry no extra payload (Unknown, WfiWfe, ...)
)

// Syndrome is the decoded form of ESR, a tagged variant keyed by Kind.
// Only the fields relevant to Kind are meaningful.
type Syndrome struct {
	Kind  SyndromeKind
	Class SyndromeClass

	// Svc/Hvc/Smc/Brk
	Imm16 uint16

	// InstructionAbort/DataAbort
	Fault Fault
	Level uint8
}

// DecodeSyndrome converts a raw ESR value into a Syndrome.
func DecodeSyndrome(esr uint32) Syndrome {
	class := SyndromeClass(esr >> 26)
	imm16 := uint16(esr & 0xFFFF)

	switch class {
	case ClassSvc:
		return Syndrome{Kind: SyndromeSvc, Class: class, Imm16: imm16}
	case ClassHvc:
		return Syndrome{Kind: SyndromeHvc, Class: class, Imm16: imm16}
	case ClassSmc:
		return Syndrome{Kind: SyndromeSmc, Class: class, Imm16: imm16}
	case ClassBrk32, ClassBrk64:
		return Syndrome{Kind: SyndromeBrk, Class: class, Imm16: imm16}
	case ClassInstructionAbortLo, ClassInstructionAbortEl:
		level := uint8(0)
		if class == ClassInstructionAbortEl {
			level = 1
		}
		return Syndrome{Kind: SyndromeInstructionAbort, Class: class, Fault: FaultFromISS(esr), Level: level}
	case ClassDataAbortLo, ClassDataAbortEl:
		level := uint8(0)
		if class == ClassDataAbortEl {
			level = 1
		}
		return Syndrome{Kind: SyndromeDataAbort, Class: class, Fault: FaultFromISS(esr), Level: level}
	default:
		return Syndrome{Kind: SyndromeSimple, Class: class}
	}
}
