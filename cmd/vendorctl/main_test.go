package main

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/andreyvit/stabledb"
	"github.com/andreyvit/stabledb/vendors"
)

func openTestDB(t *testing.T) *stabledb.DB {
	t.Helper()
	db, err := stabledb.Open(stabledb.NewHeapMemory(0), vendors.Schema(), stabledb.Options{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		BucketPages: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func runOK(t *testing.T, db *stabledb.DB, cmdline string) any {
	t.Helper()
	result, err := run(db, strings.Fields(cmdline))
	if err != nil {
		t.Fatalf("%s: %v", cmdline, err)
	}
	return result
}

func TestRun_Vendor(t *testing.T) {
	db := openTestDB(t)

	v := runOK(t, db, "vendor add -name Acme -phone 555 -location X").(*vendors.Vendor)
	if v.ID != 0 || v.Name != "Acme" || v.Phone != "555" {
		t.Fatalf("add = %+v", v)
	}
	id := strconv.FormatUint(v.ID, 10)

	u := runOK(t, db, "vendor update "+id+" -name Acme -phone 556 -location Y").(*vendors.Vendor)
	if u.Phone != "556" || u.CurrentLocation != "Y" {
		t.Fatalf("update = %+v", u)
	}
	g := runOK(t, db, "vendor get "+id).(*vendors.Vendor)
	if *g != *u {
		t.Fatalf("get = %+v, wanted %+v", g, u)
	}
	list := runOK(t, db, "vendor list").([]*vendors.Vendor)
	if len(list) != 1 {
		t.Fatalf("list = %v", list)
	}
	runOK(t, db, "vendor delete "+id)

	_, err := run(db, []string{"vendor", "get", id})
	if !errors.Is(err, stabledb.ErrNotFound) {
		t.Fatalf("get after delete = %v, wanted not found", err)
	}
}

func TestRun_Excess(t *testing.T) {
	db := openTestDB(t)

	e := runOK(t, db, "excess add -vendor 7 -name apples -amount 120 -date 2024-06-01").(*vendors.Excess)
	if e.VendorID != 7 || e.Amount != "120" {
		t.Fatalf("add = %+v", e)
	}
	u := runOK(t, db, "excess update 0 -vendor 7 -name apples -amount 90 -date 2024-06-02").(*vendors.Excess)
	if u.Amount != "90" {
		t.Fatalf("update = %+v", u)
	}
	if n := len(runOK(t, db, "excess list").([]*vendors.Excess)); n != 1 {
		t.Fatalf("list has %d entries, wanted 1", n)
	}

	st := runOK(t, db, "stats").(stabledb.Stats)
	if st.NextID != 1 {
		t.Fatalf("stats NextID = %d, wanted 1", st.NextID)
	}
}

func TestRun_Usage(t *testing.T) {
	db := openTestDB(t)
	for _, cmdline := range []string{
		"",
		"vendor",
		"widget list",
		"vendor frobnicate 1",
		"vendor get",
		"vendor get abc",
		"excess add -bogus 1",
		"vendor add -name Acme stray",
		"vendor add stray -name Acme",
		"excess update 0 -name apples stray",
		"vendor get 0 stray",
		"excess delete 0 stray",
		"vendor list stray",
	} {
		_, err := run(db, strings.Fields(cmdline))
		if !errors.Is(err, errUsage) {
			t.Errorf("%q: err = %v, wanted usage error", cmdline, err)
		}
	}
	if n := len(runOK(t, db, "vendor list").([]*vendors.Vendor)); n != 0 {
		t.Fatalf("rejected commands created %d vendors", n)
	}
}
