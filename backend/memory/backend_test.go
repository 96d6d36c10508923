package memory

import (
	"context"
	"io"
	"testing"

	"github.com/coreobj/accessor"
)

func u64(v uint64) *uint64 { return &v }

func TestCreateStatDelete(t *testing.T) {
	b := New()
	ctx := context.Background()

	if err := b.Create(ctx, accessor.OpCreate{Path: "a", Mode: accessor.ModeFile}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	meta, err := b.Stat(ctx, accessor.OpStat{Path: "a"})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Mode != accessor.ModeFile || meta.ContentLength != 0 {
		t.Errorf("Stat = %+v, want empty file", meta)
	}

	if err := b.Delete(ctx, accessor.OpDelete{Path: "a"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Stat(ctx, accessor.OpStat{Path: "a"}); !accessor.IsNotFound(err) {
		t.Errorf("Stat after delete = %v, want NotFound", err)
	}
}

func TestDeleteAbsentIsNotError(t *testing.T) {
	b := New()
	if err := b.Delete(context.Background(), accessor.OpDelete{Path: "missing"}); err != nil {
		t.Errorf("Delete absent = %v, want nil", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := New()
	ctx := context.Background()
	data := []byte("hello world")

	w, err := b.Write(ctx, accessor.OpWrite{Path: "f", Size: uint64(len(data))})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("writer.Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}

	r, err := b.Read(ctx, accessor.OpRead{Path: "f"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestReadRange(t *testing.T) {
	b := New()
	ctx := context.Background()
	data := []byte("0123456789")

	w, _ := b.Write(ctx, accessor.OpWrite{Path: "f", Size: uint64(len(data))})
	w.Write(data)
	w.Close()

	r, err := b.Read(ctx, accessor.OpRead{Path: "f", Offset: u64(2), Size: u64(3)})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != "234" {
		t.Errorf("got %q, want %q", got, "234")
	}
}

func TestReadRangeOutOfBounds(t *testing.T) {
	b := New()
	ctx := context.Background()
	data := []byte("abc")

	w, _ := b.Write(ctx, accessor.OpWrite{Path: "f", Size: uint64(len(data))})
	w.Write(data)
	w.Close()

	if _, err := b.Read(ctx, accessor.OpRead{Path: "f", Offset: u64(10)}); err == nil {
		t.Error("Read with offset beyond length should fail")
	}
	if _, err := b.Read(ctx, accessor.OpRead{Path: "f", Size: u64(10)}); err == nil {
		t.Error("Read with size beyond length should fail")
	}
}

func TestWriteShortFails(t *testing.T) {
	b := New()
	ctx := context.Background()

	w, err := b.Write(ctx, accessor.OpWrite{Path: "f", Size: 5})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Write([]byte("ab"))
	if err := w.Close(); err == nil {
		t.Error("Close with short write should fail")
	}

	if _, err := b.Stat(ctx, accessor.OpStat{Path: "f"}); !accessor.IsNotFound(err) {
		t.Errorf("short write should leave object unwritten, got Stat err=%v", err)
	}
}

func TestStatRootIsDirWithoutLookup(t *testing.T) {
	b := New()
	meta, err := b.Stat(context.Background(), accessor.OpStat{Path: "/"})
	if err != nil {
		t.Fatalf("Stat root: %v", err)
	}
	if meta.Mode != accessor.ModeDir {
		t.Errorf("root mode = %v, want Dir", meta.Mode)
	}
}

func TestListNonRecursive(t *testing.T) {
	b := New()
	ctx := context.Background()

	for _, p := range []string{"a/b", "a/c/", "a/c/d", "e"} {
		mode := accessor.ModeFile
		if p == "a/c/" {
			mode = accessor.ModeDir
		}
		if err := b.Create(ctx, accessor.OpCreate{Path: p, Mode: mode}); err != nil {
			t.Fatalf("Create %q: %v", p, err)
		}
	}

	stream, err := b.List(ctx, accessor.OpList{Path: "a/"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	seen := map[string]accessor.ObjectMode{}
	for {
		e, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen[e.Path()] = e.Mode()
	}

	want := map[string]accessor.ObjectMode{"a/b": accessor.ModeFile, "a/c/": accessor.ModeDir}
	if len(seen) != len(want) {
		t.Fatalf("List(a/) = %v, want %v", seen, want)
	}
	for k, v := range want {
		if seen[k] != v {
			t.Errorf("List(a/)[%q] = %v, want %v", k, seen[k], v)
		}
	}
}

func TestListRoot(t *testing.T) {
	b := New()
	ctx := context.Background()
	b.Create(ctx, accessor.OpCreate{Path: "a/", Mode: accessor.ModeDir})
	b.Create(ctx, accessor.OpCreate{Path: "e", Mode: accessor.ModeFile})

	stream, err := b.List(ctx, accessor.OpList{Path: "/"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	count := 0
	for {
		_, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("List(/) returned %d entries, want 2", count)
	}
}
