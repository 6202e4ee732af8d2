package paging_test

import (
	"net/http/httptest"
	"testing"

	"github.com/lamnbh/verihub/internal/app/system/paging"
)

func TestParse_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/list", nil)
	p := paging.Parse(r)
	if p.Limit != paging.DefaultLimit {
		t.Errorf("limit: got %d, want %d", p.Limit, paging.DefaultLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset: got %d, want 0", p.Offset)
	}
}

func TestParse_Explicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/list?limit=25&offset=100", nil)
	p := paging.Parse(r)
	if p.Limit != 25 {
		t.Errorf("limit: got %d, want 25", p.Limit)
	}
	if p.Offset != 100 {
		t.Errorf("offset: got %d, want 100", p.Offset)
	}
}

func TestParse_ClampsAndRejectsGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/list?limit=9999&offset=bogus", nil)
	p := paging.Parse(r)
	if p.Limit != paging.MaxLimit {
		t.Errorf("limit: got %d, want %d", p.Limit, paging.MaxLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset: got %d, want 0", p.Offset)
	}

	r = httptest.NewRequest("GET", "/list?limit=-3", nil)
	if p := paging.Parse(r); p.Limit != paging.DefaultLimit {
		t.Errorf("negative limit: got %d, want default", p.Limit)
	}
}
