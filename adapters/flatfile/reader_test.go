package flatfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestDetectDelimiter(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    rune
	}{
		{
			name:    "pipe delimited",
			content: "a|b|c\n1|2|3\n4|5|6\n",
			want:    '|',
		},
		{
			name:    "comma delimited",
			content: "a,b,c\n1,2,3\n",
			want:    ',',
		},
		{
			name:    "tab delimited",
			content: "a\tb\tc\n1\t2\t3\n",
			want:    '\t',
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, "sample.txt", tc.content)
			reader := NewDataReader(path)
			got, err := reader.DetectDelimiter(10)
			if err != nil {
				t.Fatalf("DetectDelimiter failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("delimiter = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReadDelimitedFile(t *testing.T) {
	content := "UnderwrittenCoverID|Total Premium|Gender\n" +
		"c1|21.93|Male\n" +
		"c2|N/A|Not specified\n" +
		"c3|0|\n"
	path := writeTempFile(t, "rating.txt", content)

	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	t.Run("headers normalized", func(t *testing.T) {
		want := []string{"underwrittencoverid", "total_premium", "gender"}
		for i, h := range want {
			if table.Headers[i] != h {
				t.Errorf("header %d = %q, want %q", i, table.Headers[i], h)
			}
		}
	})

	t.Run("na tokens collapse to missing", func(t *testing.T) {
		if !table.IsMissing(1, "total_premium") {
			t.Errorf("N/A cell should be missing, got %q", table.Cell(1, "total_premium"))
		}
		if !table.IsMissing(2, "gender") {
			t.Error("empty cell should be missing")
		}
	})

	t.Run("values parse", func(t *testing.T) {
		v, ok := table.Float(0, "total_premium")
		if !ok || v != 21.93 {
			t.Errorf("premium = %v ok=%v, want 21.93", v, ok)
		}
	})
}

func TestReadCSVFile(t *testing.T) {
	content := "a,b\n1,x\n2,y\n"
	path := writeTempFile(t, "data.csv", content)

	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("rows = %d, want 2", table.Len())
	}
}

func TestReadRaggedRows(t *testing.T) {
	// Short rows pad with missing, long rows truncate to the header width.
	content := "a|b|c\n1|2\n1|2|3|4\n"
	path := writeTempFile(t, "ragged.txt", content)

	table, err := NewDataReader(path).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !table.IsMissing(0, "c") {
		t.Error("short row should pad with missing")
	}
	if got := table.Cell(1, "c"); got != "3" {
		t.Errorf("long row cell = %q, want 3", got)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := NewDataReader("/nonexistent/file.txt").Read(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadHeaderOnly(t *testing.T) {
	path := writeTempFile(t, "empty.csv", "a,b\n")
	if _, err := NewDataReader(path).Read(); err == nil {
		t.Error("expected error for header-only file")
	}
}
