package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	txt := writeFile(t, dir, "notes.txt", "hello world\n")
	got, err := ReadFile(txt)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "hello world\n" {
		t.Errorf("ReadFile() = %q, want file contents verbatim", got)
	}

	md := writeFile(t, dir, "README.md", "# Title\n\nBody")
	if got, err := ReadFile(md); err != nil || !strings.Contains(got, "# Title") {
		t.Errorf("ReadFile(md) = %q, %v", got, err)
	}

	bin := writeFile(t, dir, "blob.bin", string([]byte{0xff, 0xfe, 0x00}))
	if _, err := ReadFile(bin); err == nil {
		t.Error("ReadFile(invalid utf-8) should fail")
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("ReadFile(missing) should fail")
	}

	fake := writeFile(t, dir, "paper.PDF", "not really a pdf")
	if _, err := ReadFile(fake); err == nil {
		t.Error("ReadFile(corrupt pdf) should fail")
	}
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("vector databases store embeddings for search. ", 20)

	tests := []struct {
		name       string
		size       int
		overlap    int
		wantPieces int // 0 means "more than one"
		wantErr    bool
	}{
		{name: "disabled", size: 0, wantPieces: 1},
		{name: "split", size: 100, overlap: 10},
		{name: "no overlap", size: 100},
		{name: "overlap too large", size: 50, overlap: 50, wantErr: true},
		{name: "negative", size: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Chunk(text, tt.size, tt.overlap)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Chunk() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Chunk() error = %v", err)
			}
			if tt.wantPieces > 0 && len(got) != tt.wantPieces {
				t.Fatalf("len(chunks) = %d, want %d", len(got), tt.wantPieces)
			}
			if tt.wantPieces == 0 && len(got) < 2 {
				t.Fatalf("len(chunks) = %d, want several", len(got))
			}
			if tt.size > 0 {
				for i, c := range got {
					if n := utf8.RuneCountInString(c); n > tt.size {
						t.Errorf("chunk %d has %d characters, want <= %d", i, n, tt.size)
					}
				}
			}
		})
	}
}

func TestChunk_Blank(t *testing.T) {
	got, err := Chunk("  \n\n ", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Chunk(blank) = %q, want nil", got)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "first file")
	b := writeFile(t, dir, "b.txt", strings.Repeat("word ", 60))

	pieces, err := LoadFiles([]string{a, b}, 100, 0)
	if err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	if len(pieces) < 3 {
		t.Fatalf("len(pieces) = %d, want a.txt plus several chunks of b.txt", len(pieces))
	}
	if pieces[0].Source != a || pieces[0].Chunk != 0 || pieces[0].Text != "first file" {
		t.Errorf("pieces[0] = %+v", pieces[0])
	}
	for i, p := range pieces[1:] {
		if p.Source != b || p.Chunk != i {
			t.Errorf("pieces[%d] = {%s %d}, want {%s %d}", i+1, p.Source, p.Chunk, b, i)
		}
	}

	empty := writeFile(t, dir, "empty.txt", "\n")
	if _, err := LoadFiles([]string{empty}, 0, 0); !errors.Is(err, ErrEmpty) {
		t.Errorf("LoadFiles(empty) error = %v, want ErrEmpty", err)
	}
}
