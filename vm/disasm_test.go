package vm

import (
	"strings"
	"testing"
)

func TestDisassembleAt(t *testing.T) {
	vm, _ := newTestVM(t, 9, r0, r0+1, 4, 19, 'A', 21, 0, 12345)

	cases := []struct {
		addr Word
		want string
	}{
		{0, "add r0 r1 4"},
		{4, "out 65 'A'"},
		{6, "noop"},
		{7, "halt"},
		{8, "data 12345"},
	}
	for _, tc := range cases {
		if got := vm.DisassembleAt(tc.addr); got != tc.want {
			t.Errorf("DisassembleAt(%d) = %q; want %q", tc.addr, got, tc.want)
		}
	}
}

func TestDisassembleListing(t *testing.T) {
	vm, _ := newTestVM(t, 9, r0, r0+1, 4, 19, 'A', 0)
	var sb strings.Builder
	vm.Disassemble(&sb, 0, 3)

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("listing has %d lines; want 3: %q", len(lines), sb.String())
	}
	if !strings.Contains(lines[0], "add r0 r1 4") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "out 65 'A'") {
		t.Errorf("second line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "halt") {
		t.Errorf("third line = %q", lines[2])
	}
}
