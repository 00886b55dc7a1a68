package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRun_BadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d want 2", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
}

func TestRun_RejectsInvalidBBox(t *testing.T) {
	for _, bad := range []string{"1,2,3", "1,2,3,x", "-33.9,150.85,-33.8,NaN", "-95,150.85,-33.8,150.95", "0,0,0,Inf"} {
		var stdout, stderr bytes.Buffer
		if code := run([]string{"-bbox=" + bad}, &stdout, &stderr); code != 2 {
			t.Fatalf("-bbox=%s: exit=%d want 2", bad, code)
		}
		if !strings.Contains(stderr.String(), "invalid -bbox") {
			t.Fatalf("-bbox=%s: stderr=%s", bad, stderr.String())
		}
	}
}

func TestRun_AreaCells(t *testing.T) {
	t.Setenv("H3_MAX_CELLS", "")
	t.Setenv("CACHE_BACKEND", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-bbox=-33.9,150.85,-33.8,150.95", "-cells", "-res=7"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	var out struct {
		BBox  string   `json:"bbox"`
		Res   int      `json:"res"`
		Cells []string `json:"cells"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if out.BBox != "-33.9,150.85,-33.8,150.95" || out.Res != 7 || len(out.Cells) == 0 {
		t.Fatalf("out=%+v", out)
	}
}

func TestRun_OversizedCellsRejected(t *testing.T) {
	t.Setenv("H3_MAX_CELLS", "1000")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-bbox=-34,150,-33,151", "-cells", "-res=12"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit=%d want 2, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "coverage too large") {
		t.Fatalf("stderr=%s", stderr.String())
	}
}

func TestRun_ParentFinerThanRes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-cells", "-res=6", "-parent=8"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d want 2", code)
	}
}
