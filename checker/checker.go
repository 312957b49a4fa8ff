// Package checker is the entry point the surrounding tool uses:
// it loads a serialized Project, verifies it and hands it to analyses.
package checker

import (
	"context"
	"encoding/json"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/ysyxyx/cwe-checker/ir"
)

// CheckFile loads a serialized Project from a file and verifies it.
func CheckFile(ctx context.Context, name string) (*ir.Project, *ir.Report, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read project", "size", len(data), "name", name)

	return Check(ctx, name, data)
}

// Check decodes and verifies a Project.
// The project is returned even if the report carries errors:
// the caller decides whether to run a degraded analysis or abort.
func Check(ctx context.Context, name string, data []byte) (*ir.Project, *ir.Report, error) {
	p := &ir.Project{}

	err := json.Unmarshal(data, p)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode project")
	}

	r := ir.Verify(ctx, p)

	return p, r, nil
}

// Save serializes a Project to its lossless external form.
func Save(ctx context.Context, p *ir.Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return nil, errors.Wrap(err, "encode project")
	}

	return data, nil
}
