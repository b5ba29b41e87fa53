package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/firodj/n64sora/models"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

type RegisterState struct {
	Register   string `yaml:"register" json:"register"`
	Value      uint32 `yaml:"value" json:"value"`
	Provenance string `yaml:"provenance" json:"provenance"`
}

// Report is everything learned about one ROM.
type Report struct {
	RunID             string          `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	File              string          `yaml:"file" json:"file"`
	Size              int             `yaml:"size" json:"size"`
	Format            string          `yaml:"format" json:"format"`
	FormatDescription string          `yaml:"format_description" json:"format_description"`
	Header            string          `yaml:"header" json:"header"`
	ImageName         string          `yaml:"image_name" json:"image_name"`
	IPL3              string          `yaml:"ipl3" json:"ipl3"`
	IPL3Checksum      uint32          `yaml:"ipl3_checksum" json:"ipl3_checksum"`
	HeaderEntrypoint  uint32          `yaml:"header_entrypoint" json:"header_entrypoint"`
	Entrypoint        uint32          `yaml:"entrypoint" json:"entrypoint"`
	BootSegmentLength uint32          `yaml:"boot_segment_length" json:"boot_segment_length"`
	StackPointer      uint32          `yaml:"stack_pointer" json:"stack_pointer"`
	BSSStart          uint32          `yaml:"bss_start" json:"bss_start"`
	BSSSize           uint32          `yaml:"bss_size" json:"bss_size"`
	BSSStride         uint32          `yaml:"bss_stride" json:"bss_stride"`
	JumpAddress       uint32          `yaml:"jump_address" json:"jump_address"`
	SizeGuessed       bool            `yaml:"size_guessed" json:"size_guessed"`
	DelaySlotHint     string          `yaml:"delay_slot_hint" json:"delay_slot_hint"`
	StoppedBy         string          `yaml:"stopped_by" json:"stopped_by"`
	Registers         []RegisterState `yaml:"registers" json:"registers"`
	Branches          int             `yaml:"branches" json:"branches"`
	Jumps             int             `yaml:"jumps" json:"jumps"`
	Verdict           string          `yaml:"verdict" json:"verdict"`
	Functions         int             `yaml:"functions" json:"functions"`
	Blocks            int             `yaml:"blocks" json:"blocks"`
	Listing           []string        `yaml:"listing,omitempty" json:"listing,omitempty"`
}

func NewReport(doc *SoraDocument, res *EntryResult, cls *Classification, bootLength uint32) *Report {
	r := &Report{
		File:              doc.Filename,
		Size:              doc.Size,
		Format:            doc.Format.String(),
		FormatDescription: doc.Format.Description(),
		Header:            doc.Header.Summary(),
		ImageName:         doc.Header.Name(),
		IPL3:              doc.CIC.Name(),
		IPL3Checksum:      doc.Checksum,
		HeaderEntrypoint:  doc.Header.Entrypoint,
		Entrypoint:        doc.EntryAddr,
		BootSegmentLength: bootLength,
		StackPointer:      res.StackPointer,
		BSSStart:          res.BSSStart,
		BSSSize:           res.BSSSize,
		BSSStride:         res.BSSStride,
		JumpAddress:       res.JumpAddress,
		SizeGuessed:       res.SizeGuessed,
		DelaySlotHint:     res.DelaySlotHint.String(),
		StoppedBy:         res.StoppedBy.String(),
		Branches:          cls.Branches,
		Jumps:             cls.Jumps,
		Verdict:           cls.VerdictString(),
		Functions:         doc.FunManager.Len(),
		Blocks:            res.Blocks,
	}
	abi := doc.cfg.ABI
	for _, reg := range res.Registers.Written() {
		r.Registers = append(r.Registers, RegisterState{
			Register:   reg.NameABI(abi),
			Value:      res.Registers.Get(reg),
			Provenance: res.Registers.Provenance(reg).String(),
		})
	}
	for i := range res.Lines {
		r.Listing = append(r.Listing, res.Lines[i].Listing())
	}
	return r
}

// RegisterMap returns register name to value, in register order.
func (r *Report) RegisterMap() *orderedmap.OrderedMap[string, RegisterState] {
	m := orderedmap.New[string, RegisterState]()
	for _, rs := range r.Registers {
		m.Set(rs.Register, rs)
	}
	return m
}

// ProvenanceTags renders "reg=provenance" pairs for the registers that were
// patched by addiu or ori.
func (r *Report) ProvenanceTags() string {
	var tags []string
	m := r.RegisterMap()
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Provenance == ProvNone.String() {
			continue
		}
		tags = append(tags, pair.Key+"="+pair.Value.Provenance)
	}
	return strings.Join(tags, ",")
}

// Terse renders the report as a single ';' separated line.
func (r *Report) Terse() string {
	fields := []string{
		r.File,
		fmt.Sprintf("%d", r.Size),
		r.Format,
		r.Header,
		r.IPL3,
		fmt.Sprintf("%08X", r.Entrypoint),
		fmt.Sprintf("0x%X", r.BootSegmentLength),
		fmt.Sprintf("%08X", r.StackPointer),
		fmt.Sprintf("%08X", r.BSSStart),
		fmt.Sprintf("0x%X", r.BSSSize),
		fmt.Sprintf("%08X", r.JumpAddress),
		r.ProvenanceTags(),
		fmt.Sprintf("%d", r.Branches),
		fmt.Sprintf("%d", r.Jumps),
		r.Verdict,
	}
	return strings.Join(fields, ";")
}

func paint(cfg Config, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if !cfg.Color {
		c.DisableColor()
	}
	return c
}

func (r *Report) verdictColor(cfg Config) *color.Color {
	switch r.Verdict {
	case ToolchainIDO.String():
		return paint(cfg, color.FgGreen, color.Bold)
	case ToolchainGCC.String():
		return paint(cfg, color.FgYellow, color.Bold)
	}
	return paint(cfg, color.FgRed)
}

// WriteText renders the multi-line human readable report.
func (r *Report) WriteText(w io.Writer, cfg Config) error {
	heading := paint(cfg, color.FgCyan, color.Bold)
	warn := paint(cfg, color.FgRed)

	if _, err := heading.Fprintf(w, "%s\n", r.File); err != nil {
		return err
	}
	fmt.Fprintf(w, "  size:          %d bytes\n", r.Size)
	fmt.Fprintf(w, "  format:        %s (%s)\n", r.Format, r.FormatDescription)
	fmt.Fprintf(w, "  header:        %s\n", r.Header)
	fmt.Fprintf(w, "  ipl3:          %s (%08X)\n", r.IPL3, r.IPL3Checksum)
	fmt.Fprintf(w, "  entrypoint:    0x%08X (header 0x%08X)\n", r.Entrypoint, r.HeaderEntrypoint)

	if cfg.Verbosity >= 0 && len(r.Listing) > 0 {
		heading.Fprintln(w, "entrypoint code")
		for _, line := range r.Listing {
			fmt.Fprintln(w, line)
		}
	}
	if cfg.Verbosity > 0 && len(r.Registers) > 0 {
		heading.Fprintln(w, "registers")
		m := r.RegisterMap()
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(w, "  %-4s = 0x%08X (%s)\n", pair.Key, pair.Value.Value, pair.Value.Provenance)
		}
	}

	heading.Fprintln(w, "boot")
	fmt.Fprintf(w, "  jump to:       0x%08X\n", r.JumpAddress)
	fmt.Fprintf(w, "  bss size:      %10s", fmt.Sprintf("0x%X", r.BSSSize))
	if r.SizeGuessed {
		warn.Fprint(w, " (guessed, needs manual review)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  bss stride:    %10s\n", fmt.Sprintf("0x%X", r.BSSStride))
	fmt.Fprintf(w, "  bss start:     0x%08X\n", r.BSSStart)
	fmt.Fprintf(w, "  initial sp:    0x%08X\n", r.StackPointer)
	fmt.Fprintf(w, "  stopped by:    %s\n", r.StoppedBy)
	fmt.Fprintf(w, "  delay slot:    %s\n", r.DelaySlotHint)

	heading.Fprintln(w, "compiler")
	fmt.Fprintf(w, "  boot segment:  0x%X bytes, %d functions, %d blocks\n", r.BootSegmentLength, r.Functions, r.Blocks)
	fmt.Fprintf(w, "  branches:      %d\n", r.Branches)
	fmt.Fprintf(w, "  jumps:         %d\n", r.Jumps)
	fmt.Fprint(w, "  verdict:       ")
	r.verdictColor(cfg).Fprintln(w, r.Verdict)
	return nil
}

// Write renders the report in the configured format.
func (r *Report) Write(w io.Writer, cfg Config) error {
	switch {
	case cfg.Terse:
		_, err := fmt.Fprintln(w, r.Terse())
		return err
	case cfg.Output == OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case cfg.Output == OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return r.WriteText(w, cfg)
}

// Record converts the report into a history row.
func (r *Report) Record() *models.RomAnalysis {
	return &models.RomAnalysis{
		RunID:        r.RunID,
		File:         r.File,
		Size:         int64(r.Size),
		Format:       r.Format,
		ImageName:    r.ImageName,
		IPL3:         r.IPL3,
		IPL3Checksum: int64(r.IPL3Checksum),
		Entrypoint:   int64(r.Entrypoint),
		JumpAddress:  int64(r.JumpAddress),
		BSSStart:     int64(r.BSSStart),
		BSSSize:      int64(r.BSSSize),
		StackPointer: int64(r.StackPointer),
		SizeGuessed:  r.SizeGuessed,
		Branches:     int64(r.Branches),
		Jumps:        int64(r.Jumps),
		Verdict:      r.Verdict,
	}
}
