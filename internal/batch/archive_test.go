package batch

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestParseChapterFilename(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		wantNumber string
		wantTitle  string
	}{
		{"plain number", "12.zip", "12", ""},
		{"chapter prefix", "chapter 45.cbz", "45", ""},
		{"short prefix", "ch12.zip", "12", ""},
		{"decimal chapter", "ch12.5.cbz", "12.5", ""},
		{"number and title", "12 - The Gate.zip", "12", "The Gate"},
		{"series then chapter", "Solo Leveling - ch 110 - Reawakening.cbz", "110", "Solo Leveling Reawakening"},
		{"arabic indicator", "الفصل 33.zip", "33", ""},
		{"underscore separators", "one_piece_ch_1044.zip", "1044", "one piece"},
		{"no number at all", "extras.zip", "1", "extras"},
		{"number buried in word", "vol3 extras.cbz", "3", "vol3 extras"},
		{"full path stripped", "/downloads/batch/ch7.zip", "7", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseChapterFilename(tt.filename)
			if got.Number != tt.wantNumber {
				t.Errorf("number = %q, want %q", got.Number, tt.wantNumber)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", got.Title, tt.wantTitle)
			}
		})
	}
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chapter.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("add entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestCountArchiveImages(t *testing.T) {
	path := writeZip(t, map[string]string{
		"p003.png":                "x",
		"p001.jpg":                "x",
		"p002.webp":               "x",
		"info.txt":                "not a page",
		"__MACOSX/._p001.jpg":     "resource fork",
		"nested/p004.JPEG":        "x",
		"thumbs/.hidden/skip.doc": "x",
	})

	images, err := CountArchiveImages(path)
	if err != nil {
		t.Fatalf("CountArchiveImages: %v", err)
	}
	want := []string{"nested/p004.JPEG", "p001.jpg", "p002.webp", "p003.png"}
	if len(images) != len(want) {
		t.Fatalf("got %d images %v, want %d", len(images), images, len(want))
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("images[%d] = %q, want %q (sorted)", i, images[i], want[i])
		}
	}
}

func TestCountArchiveImagesRejectsUnreadable(t *testing.T) {
	notZip := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(notZip, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CountArchiveImages(notZip); err == nil {
		t.Fatal("expected error for non-zip file")
	}
}

func TestNewItemPrepares(t *testing.T) {
	path := writeZip(t, map[string]string{"p1.jpg": "x", "p2.jpg": "x"})
	renamed := filepath.Join(filepath.Dir(path), "ch 9 - Aftermath.zip")
	if err := os.Rename(path, renamed); err != nil {
		t.Fatal(err)
	}

	it := NewItem(renamed)
	if it.ID == "" {
		t.Error("item has no id")
	}
	if it.Number != "9" || it.Title != "Aftermath" {
		t.Errorf("parsed number=%q title=%q", it.Number, it.Title)
	}
	if !it.Counting {
		t.Error("new item should start in counting state")
	}
	if err := it.CountImages(); err != nil {
		t.Fatalf("CountImages: %v", err)
	}
	if it.Counting || it.ImageCount != 2 {
		t.Errorf("after counting: counting=%v images=%d", it.Counting, it.ImageCount)
	}
}
