package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSet_Position(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.evm", []byte("func main\n    halt\n"))

	tests := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{"start of file", 0, LineCol{Line: 1, Col: 1}},
		{"middle of first line", 5, LineCol{Line: 1, Col: 6}},
		{"start of second line", 10, LineCol{Line: 2, Col: 1}},
		{"indented mnemonic", 14, LineCol{Line: 2, Col: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fs.Position(id, tt.off); got != tt.want {
				t.Errorf("Position(%d) = %+v, want %+v", tt.off, got, tt.want)
			}
		})
	}
}

func TestFileSet_PositionSingleLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("one.evm", []byte("halt"))
	if got := fs.Position(id, 2); got != (LineCol{Line: 1, Col: 3}) {
		t.Errorf("Position(2) = %+v, want 1:3", got)
	}
}

func TestFile_GetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.evm", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	tests := []struct {
		line uint32
		want string
	}{
		{0, ""},
		{1, "first"},
		{2, "second"},
		{3, "third"}, // no trailing newline
		{4, ""},
	}
	for _, tt := range tests {
		if got := f.GetLine(tt.line); got != tt.want {
			t.Errorf("GetLine(%d) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFileSet_LoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.evm")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("func main\r\n    halt\r\n")...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)

	if f.Flags&FileHadBOM == 0 {
		t.Error("BOM flag not set")
	}
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Error("CRLF flag not set")
	}
	if string(f.Content) != "func main\n    halt\n" {
		t.Errorf("content not normalized: %q", f.Content)
	}
}

func TestFileSet_GetByPath(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a/b.evm", []byte("halt"))

	if _, ok := fs.GetByPath("a/b.evm"); !ok {
		t.Fatal("GetByPath missed a loaded file")
	}
	// Paths are normalized, so a cleanable variant still resolves.
	if _, ok := fs.GetByPath("a/./b.evm"); !ok {
		t.Fatal("GetByPath missed the normalized path")
	}
	if _, ok := fs.GetByPath("missing.evm"); ok {
		t.Fatal("GetByPath resolved a file that was never added")
	}
}

func TestNormalizeCRLF(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		want        string
		wantChanged bool
	}{
		{"no carriage returns", "a\nb", "a\nb", false},
		{"crlf pairs", "a\r\nb\r\n", "a\nb\n", true},
		{"lone cr untouched", "a\rb", "a\rb", false},
		{"mixed", "a\r\nb\rc\n", "a\nb\rc\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := normalizeCRLF([]byte(tt.in))
			if string(got) != tt.want || changed != tt.wantChanged {
				t.Errorf("normalizeCRLF(%q) = %q, %v; want %q, %v", tt.in, got, changed, tt.want, tt.wantChanged)
			}
		})
	}
}

func TestRemoveBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("halt")...)
	got, had := removeBOM(withBOM)
	if !had || string(got) != "halt" {
		t.Errorf("removeBOM = %q, %v; want \"halt\", true", got, had)
	}

	plain := []byte("halt")
	got, had = removeBOM(plain)
	if had || string(got) != "halt" {
		t.Errorf("removeBOM(plain) = %q, %v; want \"halt\", false", got, had)
	}
}
