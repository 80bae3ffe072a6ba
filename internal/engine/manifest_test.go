package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
documents:
  - file: scan001.pdf
    type: receipt
    fields:
      Date: 2024-03-15
      Merchant: Amazon
      Amount: 19.99
  - file: /archive/chase.pdf
    type: Bank Statement
    fields:
      date: 2024-02
      institution: Chase
      account_number: "000123456789"
`)

	manifest, err := LoadManifest(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, []string{filepath.Join(dir, "scan001.pdf"), "/archive/chase.pdf"}, manifest.Paths())

	receipt, err := manifest.Classify(context.Background(), filepath.Join(dir, "scan001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, model.DocumentReceipt, receipt.DocumentType)
	assert.Equal(t, model.Fields{
		model.FieldDate:     "2024-03-15",
		model.FieldMerchant: "Amazon",
		model.FieldAmount:   "19.99",
	}, receipt.Fields)

	statement, err := manifest.Classify(context.Background(), "/archive/./chase.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentBankStatement, statement.DocumentType)
	assert.Equal(t, "000123456789", statement.Fields[model.FieldAccountNumber])
}

func TestLoadManifest_RelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inbox.yaml"), []byte(`
documents:
  - file: scan001.pdf
    type: receipt
    fields: {Date: 2024-03-15, Merchant: Amazon, Amount: 19.99}
`), 0600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Getwd may differ from dir when the temp dir sits behind a symlink
	cwd, err := os.Getwd()
	require.NoError(t, err)
	want := filepath.Join(cwd, "scan001.pdf")

	manifest, err := LoadManifest("inbox.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{want}, manifest.Paths())

	// Absolute command-line arguments and relative ones find the same entry
	for _, path := range []string{want, "scan001.pdf", "./scan001.pdf"} {
		classification, err := manifest.Classify(context.Background(), path)
		require.NoError(t, err, path)
		assert.Equal(t, model.DocumentReceipt, classification.DocumentType)
	}
}

func TestManifestClassifier_UnknownFile(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, "documents: []\n"))
	require.NoError(t, err)
	assert.Empty(t, manifest.Paths())

	_, err = manifest.Classify(context.Background(), "/inbox/missing.pdf")
	require.ErrorIs(t, err, common.ErrClassificationFailed)

	var retryable *common.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.False(t, retryable.Retryable)
}

func TestManifestClassifier_ReturnsCopies(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, `
documents:
  - file: a.pdf
    type: general
    fields: {Description: Notes}
`))
	require.NoError(t, err)

	path := manifest.Paths()[0]
	first, err := manifest.Classify(context.Background(), path)
	require.NoError(t, err)
	first.Fields.Set(model.FieldDescription, "changed")

	second, err := manifest.Classify(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Notes", second.Fields[model.FieldDescription])
}

func TestLoadManifest_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		content string
	}{
		{
			name:    "unknown document type",
			content: "documents:\n  - file: a.pdf\n    type: spaceship\n",
			wantErr: model.ErrUnknownDocumentType,
		},
		{
			name:    "unknown field",
			content: "documents:\n  - file: a.pdf\n    type: receipt\n    fields: {Color: red}\n",
			wantErr: model.ErrUnknownFieldName,
		},
		{
			name:    "missing file",
			content: "documents:\n  - type: receipt\n",
		},
		{
			name:    "duplicate file",
			content: "documents:\n  - file: a.pdf\n    type: receipt\n  - file: ./a.pdf\n    type: bill\n",
		},
		{
			name:    "not yaml",
			content: "documents: [unclosed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.content))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
