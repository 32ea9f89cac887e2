package blame

import "testing"

const samplePorcelain = `aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 1 1 2
author Jane Doe
author-mail <jane@example.com>
author-time 1700000000
author-tz +0000
committer Jane Doe
committer-mail <jane@example.com>
committer-time 1700000000
committer-tz +0000
summary initial commit
filename foo.go
	package foo
bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb 1 2 1
author John Roe
author-mail <john@example.com>
author-time 1710000000
author-tz +0000
committer John Roe
committer-mail <john@example.com>
committer-time 1710000000
committer-tz +0000
summary follow-up commit
filename foo.go
	var x = 1
aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 2 3
	// second line from first commit, metadata omitted on repeat
`

func TestParsePorcelain(t *testing.T) {
	lines, err := parsePorcelain(samplePorcelain)
	if err != nil {
		t.Fatalf("parsePorcelain: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}

	if lines[0].CommitHash[0] != 'a' || lines[0].AuthorEmail != "jane@example.com" || lines[0].Content != "package foo" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].CommitHash[0] != 'b' || lines[1].AuthorEmail != "john@example.com" || lines[1].LineNo != 2 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
	// Third line reuses the first commit without repeating metadata.
	if lines[2].CommitHash[0] != 'a' || lines[2].AuthorEmail != "jane@example.com" || lines[2].LineNo != 3 {
		t.Fatalf("unexpected third line (metadata not carried across repeats): %+v", lines[2])
	}
}
