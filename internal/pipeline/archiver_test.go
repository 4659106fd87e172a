package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/extract"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/store"
)

func archiverConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Dirs = config.Dirs{
		Upload:  filepath.Join(root, "upload"),
		Failed:  filepath.Join(root, "failed"),
		Archive: filepath.Join(root, "archive"),
		Control: filepath.Join(root, "control"),
	}
	for _, dir := range []string{cfg.Dirs.Upload, cfg.Dirs.Failed, cfg.Dirs.Archive, cfg.Dirs.Control} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	cfg.Processing.CreditRetentionDays = 14
	return cfg
}

func archivedDocument(recID int64, kind string, age time.Duration) *store.Document {
	rec := &extract.Record{Issuer: "OBI_DE", Kind: kind, Name: "obi_de_gutschrift"}
	data, _ := rec.Marshal()
	return &store.Document{
		ID:         recID,
		Subfolder:  "OBI_DE",
		MessageID:  "msg-1",
		Status:     store.StatusExtracted,
		OutputData: data,
		CreatedAt:  time.Now().Add(-age),
	}
}

func TestArchiverMovesExpiredCredit(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := archiverConfig(t)

	writeFile(t, filepath.Join(cfg.Dirs.Upload, "obi_de_gutschrift_id=21.pdf"), "pdf")
	writeFile(t, filepath.Join(cfg.Dirs.Upload, "obi_de_gutschrift_id=21.json"), "json")
	writeFile(t, filepath.Join(cfg.Dirs.Upload, "obi_de_gutschrift_id=21.txt"), "txt")

	st := store.NewMockStore(ctrl)
	mail := mailbox.NewMockAccount(ctrl)

	st.EXPECT().GetDocument(gomock.Any(), int64(21)).
		Return(archivedDocument(21, "credit", 20*24*time.Hour), nil)
	st.EXPECT().UpdateDocument(gomock.Any(), int64(21), store.Fields{
		"doc_status": string(store.StatusCaseUnmatched),
		"link":       filepath.Join(cfg.Dirs.Archive, "obi_de_gutschrift_id=21.pdf"),
	}).Return(nil)

	a := NewArchiver(cfg, st, mail, zap.NewNop())
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(cfg.Dirs.Archive, "obi_de_gutschrift_id=21.pdf"))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs.Upload, "obi_de_gutschrift_id=21.json"))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs.Upload, "obi_de_gutschrift_id=21.txt"))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs.Archive, "obi_de_gutschrift_id=21.json"))
}

func TestArchiverSkipsDebit(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := archiverConfig(t)

	writeFile(t, filepath.Join(cfg.Dirs.Upload, "obi_de_retoure_id=22.pdf"), "pdf")

	st := store.NewMockStore(ctrl)
	mail := mailbox.NewMockAccount(ctrl)

	st.EXPECT().GetDocument(gomock.Any(), int64(22)).
		Return(archivedDocument(22, "debit", 90*24*time.Hour), nil)

	a := NewArchiver(cfg, st, mail, zap.NewNop())
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(cfg.Dirs.Upload, "obi_de_retoure_id=22.pdf"))
}

func TestArchiverSkipsCreditUnderRetention(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := archiverConfig(t)

	writeFile(t, filepath.Join(cfg.Dirs.Failed, "obi_de_gutschrift_id=23.pdf"), "pdf")

	st := store.NewMockStore(ctrl)
	mail := mailbox.NewMockAccount(ctrl)

	st.EXPECT().GetDocument(gomock.Any(), int64(23)).
		Return(archivedDocument(23, "credit", 3*24*time.Hour), nil)

	a := NewArchiver(cfg, st, mail, zap.NewNop())
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(cfg.Dirs.Failed, "obi_de_gutschrift_id=23.pdf"))
}

func TestArchiverReportsRepeatedFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := archiverConfig(t)

	writeFile(t, filepath.Join(cfg.Dirs.Archive, "obi_de_gutschrift_id=24.pdf"), "pdf")

	st := store.NewMockStore(ctrl)
	mail := mailbox.NewMockAccount(ctrl)

	msg := &mailbox.Message{ID: "msg-1"}
	st.EXPECT().GetDocument(gomock.Any(), int64(24)).
		Return(archivedDocument(24, "credit", 40*24*time.Hour), nil)
	mail.EXPECT().MessagesByID("msg-1").Return([]*mailbox.Message{msg}, nil)
	mail.EXPECT().AppendText(msg, "G.ROBOT_RFC (WARNING): Repeated attempts to match "+
		"the document with a dispute case failed.").Return(nil)

	a := NewArchiver(cfg, st, mail, zap.NewNop())
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(cfg.Dirs.Archive, "obi_de_gutschrift_id=24.pdf"))
}

func TestArchiverSkipsUntaggedFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := archiverConfig(t)

	writeFile(t, filepath.Join(cfg.Dirs.Upload, "stray.pdf"), "pdf")

	st := store.NewMockStore(ctrl)
	mail := mailbox.NewMockAccount(ctrl)

	a := NewArchiver(cfg, st, mail, zap.NewNop())
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(cfg.Dirs.Upload, "stray.pdf"))
}
