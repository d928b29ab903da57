package orchestrator_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/catalog"
	"github.com/phigros-go/phigros-backend/internal/decrypt"
	"github.com/phigros-go/phigros-backend/internal/fetcher"
	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/orchestrator"
	"github.com/phigros-go/phigros-backend/internal/store"
)

func buildGameRecordBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	name := "songA"
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(1 << 3) // AT bit

	scoreBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(scoreBytes, 990000)
	buf.Write(scoreBytes)

	accBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(accBytes, math.Float32bits(99.0))
	buf.Write(accBytes)

	buf.WriteByte(1) // full combo flag
	return buf.Bytes()
}

func buildSaveBlob(t *testing.T) []byte {
	t.Helper()
	var zipBuf bytes.Buffer
	w := zip.NewWriter(&zipBuf)

	entries := map[string][]byte{
		"gameRecord":   buildGameRecordBytes(t),
		"gameProgress": []byte("progress"),
		"user":         []byte("user-data"),
		"settings":     []byte("settings-data"),
		"gameKey":      []byte("gamekey-data"),
	}
	for name, plaintext := range entries {
		payload, err := decrypt.EncryptEntryForFixtures(name, plaintext)
		require.NoError(t, err)
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipBuf.Bytes()
}

func TestSaveAndRKS_FullPipeline(t *testing.T) {
	blob := buildSaveBlob(t)

	blobMux := http.NewServeMux()
	blobMux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(blob)
	})
	blobSrv := httptest.NewServer(blobMux)
	defer blobSrv.Close()

	metaMux := http.NewServeMux()
	metaMux.HandleFunc("/classes/_GameSave", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"summary":   base64.StdEncoding.EncodeToString([]byte{1, 0, 0, 0, 0, 0, 1, 0}),
			"gameFile":  blobSrv.URL + "/blob",
			"updatedAt": time.Now().UTC().Format(time.RFC3339),
		})
	})
	metaSrv := httptest.NewServer(metaMux)
	defer metaSrv.Close()

	f := fetcher.New(fetcher.Config{CN: fetcher.RegionConfig{BaseURL: metaSrv.URL, AppID: "a", AppKey: "k"}}, nil)

	cat := catalog.New([]*model.ChartEntry{
		{SongID: "songA", Name: "Song A", Constants: map[model.Difficulty]float64{model.DifficultyAT: 15.0}},
	})

	dsn := "file:" + filepath.Join(t.TempDir(), "lb.db")
	st, err := store.NewSQLite(dsn)
	require.NoError(t, err)
	defer st.Close()

	orch := orchestrator.New("test-salt", f, cat, st)

	result, err := orch.SaveAndRKS(context.Background(), model.Credential{SessionToken: "tok"}, fetcher.VersionCN, true)
	require.NoError(t, err)
	require.NotNil(t, result.UserKey)
	require.NotNil(t, result.Rks)
	require.Len(t, result.Rks.BestN, 1)
	assert.Equal(t, "songA", result.Rks.BestN[0].SongID)
	assert.True(t, result.Rks.TotalRKS > 0)

	require.NoError(t, st.PutProfile(context.Background(), *result.UserKey, store.ProfileFlags{IsPublic: boolPtr(true)}))

	assert.Eventually(t, func() bool {
		page, err := st.Top(context.Background(), 10, nil, true)
		return err == nil && len(page.Items) == 1
	}, time.Second, 10*time.Millisecond, "background leaderboard write should land")
}

func TestSaveAndRKS_WithoutCalculateRKS(t *testing.T) {
	blob := buildSaveBlob(t)

	blobMux := http.NewServeMux()
	blobMux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(blob)
	})
	blobSrv := httptest.NewServer(blobMux)
	defer blobSrv.Close()

	metaMux := http.NewServeMux()
	metaMux.HandleFunc("/classes/_GameSave", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"summary":   "",
			"gameFile":  blobSrv.URL + "/blob",
			"updatedAt": time.Now().UTC().Format(time.RFC3339),
		})
	})
	metaSrv := httptest.NewServer(metaMux)
	defer metaSrv.Close()

	f := fetcher.New(fetcher.Config{CN: fetcher.RegionConfig{BaseURL: metaSrv.URL, AppID: "a", AppKey: "k"}}, nil)
	cat := catalog.New(nil)
	orch := orchestrator.New("test-salt", f, cat, nil)

	result, err := orch.SaveAndRKS(context.Background(), model.Credential{SessionToken: "tok"}, fetcher.VersionCN, false)
	require.NoError(t, err)
	assert.Nil(t, result.Rks)
	require.NotNil(t, result.Save)
	assert.Contains(t, result.Save.GameRecord, "songA")
}

func boolPtr(b bool) *bool { return &b }
