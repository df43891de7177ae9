package teamstamp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// TestReadTable - Parsing
// ---------------------------------------------------------------------------

func TestReadTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    CredentialTable
		wantErr error
	}{
		{
			name:  "header only",
			input: "TeamNum,Password,Code\n",
			want:  nil,
		},
		{
			name:  "two rows",
			input: "TeamNum,Password,Code\n1,brave-otter-1234,a1b2c3d4\n2,calm-heron-9999,zzzz0000\n",
			want: CredentialTable{
				{ID: 1, Secret: "brave-otter-1234", Code: "a1b2c3d4"},
				{ID: 2, Secret: "calm-heron-9999", Code: "zzzz0000"},
			},
		},
		{
			name:  "extra columns ignored",
			input: "TeamNum,Password,Code,School\n7,swift-badger-1000,q1w2e3r4,Lincoln High\n",
			want:  CredentialTable{{ID: 7, Secret: "swift-badger-1000", Code: "q1w2e3r4"}},
		},
		{
			name:  "non-sequential ids kept in file order",
			input: "TeamNum,Password,Code\n12,a-b-1000,code0012\n3,c-d-2000,code0003\n",
			want: CredentialTable{
				{ID: 12, Secret: "a-b-1000", Code: "code0012"},
				{ID: 3, Secret: "c-d-2000", Code: "code0003"},
			},
		},
		{
			name:  "crlf line endings",
			input: "TeamNum,Password,Code\r\n1,a-b-1000,code0001\r\n",
			want:  CredentialTable{{ID: 1, Secret: "a-b-1000", Code: "code0001"}},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrFormat,
		},
		{
			name:    "too few columns",
			input:   "TeamNum,Password,Code\n1,brave-otter-1234\n",
			wantErr: ErrFormat,
		},
		{
			name:    "non-integer id",
			input:   "TeamNum,Password,Code\none,brave-otter-1234,a1b2c3d4\n",
			wantErr: ErrFormat,
		},
		{
			name:    "duplicate id",
			input:   "TeamNum,Password,Code\n1,a,x\n1,b,y\n",
			wantErr: ErrFormat,
		},
		{
			name:    "unterminated quote",
			input:   "TeamNum,Password,Code\n1,\"brave,x\n",
			wantErr: ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadTable(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadTable() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadTable() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ReadTable() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadTable_ErrorMentionsLine(t *testing.T) {
	t.Parallel()

	_, err := ReadTable(strings.NewReader("TeamNum,Password,Code\n1,a,b\nx,c,d\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("ReadTable() error = %v, want mention of line 3", err)
	}
}

// ---------------------------------------------------------------------------
// TestWriteTable / TestSaveTable - Persistence
// ---------------------------------------------------------------------------

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	table := CredentialTable{
		{ID: 1, Secret: "brave-otter-1234", Code: "a1b2c3d4"},
		{ID: 2, Secret: "calm-heron-9999", Code: "zzzz0000"},
	}
	if err := WriteTable(&b, table); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := "TeamNum,Password,Code\n1,brave-otter-1234,a1b2c3d4\n2,calm-heron-9999,zzzz0000\n"
	if b.String() != want {
		t.Errorf("WriteTable() = %q, want %q", b.String(), want)
	}
}

func TestSaveTable_LoadTable_Lossless(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, TableFileName)

	// Secrets with separators must survive quoting.
	table := CredentialTable{
		{ID: 3, Secret: "brave-otter-1234", Code: "a1b2c3d4"},
		{ID: 1, Secret: `odd,"secret"`, Code: "zzzz0000"},
	}
	if err := SaveTable(path, table); err != nil {
		t.Fatalf("SaveTable() error = %v", err)
	}

	loaded, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if diff := cmp.Diff(table, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	// Saving what was loaded reproduces the file byte for byte.
	first, _ := os.ReadFile(path)
	if err := SaveTable(path, loaded); err != nil {
		t.Fatalf("SaveTable() error = %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Errorf("re-saved table differs:\n%s\nvs\n%s", first, second)
	}
}

func TestLoadTable_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadTable(filepath.Join(t.TempDir(), TableFileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadTable() error = %v, want os.ErrNotExist", err)
	}
}
