package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/firodj/n64sora/internal"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/firodj/n64sora/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bootStub = []uint32{
	0x3C088004, 0x2508E940, 0x24095D50, 0x2129FFF8, 0xAD000000,
	0xAD000004, 0x1520FFFC, 0x21080008, 0x3C0A8002, 0x3C1D8004,
	0x254A5CC0, 0x01400008, 0x27BDF330, 0x00000000, 0x00000000,
}

func testROM() []byte {
	rom := make([]byte, 0x2000)
	copy(rom, []byte{0x80, 0x37, 0x12, 0x40})
	binary.BigEndian.PutUint32(rom[0x08:], 0x80000400)
	copy(rom[0x20:], "SERVER TEST")
	for i := n64.HeaderSize; i < n64.BootCodeOffset; i++ {
		rom[i] = byte(i)
	}
	for i, w := range bootStub {
		binary.BigEndian.PutUint32(rom[n64.BootCodeOffset+i*4:], w)
	}
	return rom
}

type serverFixture struct {
	handler http.Handler
	repo    *internal.SQLRepository
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	table := n64.DefaultTable()
	rom := testROM()
	require.NoError(t, table.Register(n64.CIC{
		Checksum: n64.Cksum(rom[n64.HeaderSize:n64.BootCodeOffset]),
		NTSCName: "6102",
		PALName:  "7101",
	}))

	repo, err := openRepository(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := internal.DefaultConfig()
	cfg.Color = false

	return &serverFixture{handler: newServer(cfg, table, repo, log), repo: repo}
}

func (f *serverFixture) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestServerAnalyze(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/analyze?name=roms/stub.z64", testROM())
	require.Equal(t, http.StatusOK, rec.Code)

	var report internal.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "stub.z64", report.File)
	assert.Equal(t, "SERVER TEST", report.ImageName)
	assert.Equal(t, uint32(0x80025CC0), report.JumpAddress)
	assert.Equal(t, uint32(0x8004F330), report.StackPointer)
	assert.NotEmpty(t, report.RunID)

	rec = f.do(http.MethodGet, "/analyses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []models.RomAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "stub.z64", recs[0].File)
	assert.Equal(t, report.RunID, recs[0].RunID)
}

func TestServerAnalyzeErrors(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/analyze", []byte("definitely not a rom"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, internal.StageEndian, resp.Stage)

	rom := testROM()
	rom[0x40] ^= 0xFF
	rec = f.do(http.MethodPost, "/analyze?name=odd.z64", rom)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, internal.StageIPL3, resp.Stage)

	rec = f.do(http.MethodGet, "/analyses?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerIPL3(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/ipl3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []cicResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 7)
	assert.Contains(t, entries, cicResponse{
		Checksum: "DAB442CD",
		Name:     "7102",
		NTSC:     "-",
		PAL:      "7102",
		Offset:   "0x80000480",
	})
}
