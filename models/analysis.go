package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RomAnalysis is one stored analysis result.
type RomAnalysis struct {
	bun.BaseModel `bun:"table:rom_analyses,alias:ra"`

	ID           int64     `bun:",pk,autoincrement" json:"id"`
	RunID        string    `bun:",notnull" json:"run_id"`
	File         string    `bun:",notnull" json:"file"`
	Size         int64     `json:"size"`
	Format       string    `json:"format"`
	ImageName    string    `json:"image_name"`
	IPL3         string    `bun:"ipl3" json:"ipl3"`
	IPL3Checksum int64     `bun:"ipl3_checksum" json:"ipl3_checksum"`
	Entrypoint   int64     `json:"entrypoint"`
	JumpAddress  int64     `json:"jump_address"`
	BSSStart     int64     `bun:"bss_start" json:"bss_start"`
	BSSSize      int64     `bun:"bss_size" json:"bss_size"`
	StackPointer int64     `json:"stack_pointer"`
	SizeGuessed  bool      `json:"size_guessed"`
	Branches     int64     `json:"branches"`
	Jumps        int64     `json:"jumps"`
	Verdict      string    `json:"verdict"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}
