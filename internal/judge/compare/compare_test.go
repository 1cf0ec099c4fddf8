package compare

import "testing"

func TestOutputsExactMatch(t *testing.T) {
	if !Outputs("1 2 3\n", "1 2 3\n") {
		t.Fatalf("identical output should match")
	}
}

func TestOutputsTrailingWhitespace(t *testing.T) {
	if !Outputs("hello  \nworld\t\n", "hello\nworld\n") {
		t.Fatalf("trailing whitespace per line should be ignored")
	}
	if !Outputs("  hello\n", "hello\n") {
		t.Fatalf("leading whitespace per line should be ignored")
	}
}

func TestOutputsMissingFinalNewline(t *testing.T) {
	if !Outputs("42", "42\n") {
		t.Fatalf("missing final newline should not matter")
	}
	if !Outputs("42\n\n\n", "42") {
		t.Fatalf("extra trailing blank lines should not matter")
	}
}

func TestOutputsInteriorWhitespaceSignificant(t *testing.T) {
	if Outputs("1  2\n", "1 2\n") {
		t.Fatalf("interior whitespace must be significant")
	}
}

func TestOutputsLineCountMismatch(t *testing.T) {
	if Outputs("1\n2\n", "1\n") {
		t.Fatalf("different line counts must not match")
	}
	if Outputs("1\n\n2\n", "1\n2\n") {
		t.Fatalf("interior blank line changes line count")
	}
}

func TestOutputsCRLF(t *testing.T) {
	if !Outputs("a\r\nb\r\n", "a\nb\n") {
		t.Fatalf("CRLF output should match LF expected")
	}
}

func TestOutputsWrongAnswer(t *testing.T) {
	if Outputs("1 2 4\n", "1 2 3\n") {
		t.Fatalf("different content must not match")
	}
}
