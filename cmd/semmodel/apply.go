package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/model"
)

//go:embed ops.schema.json
var opsSchema string

// Batch is a list of model extension operations applied in order.
type Batch struct {
	User string `json:"user,omitempty"`
	Ops  []Op   `json:"ops"`
}

// Op is one extension operation. Fields not used by the op are ignored.
type Op struct {
	Op   string         `json:"op"`
	Form string         `json:"form,omitempty"`
	Name string         `json:"name"`
	Type string         `json:"type,omitempty"`
	Opts map[string]any `json:"opts,omitempty"`
	Info model.Info     `json:"info,omitempty"`
}

type opResult struct {
	Op    string `json:"op"`
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// loadBatch reads a JSON or YAML batch file and validates it against the
// embedded ops schema.
func loadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "CLI", "loadBatch", "read ops file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.WrapInvalid(err, "CLI", "loadBatch", "parse YAML")
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, errors.WrapInvalid(err, "CLI", "loadBatch", "convert YAML to JSON")
		}
	}

	if err := validateBatch(data); err != nil {
		return nil, err
	}

	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, errors.WrapInvalid(err, "CLI", "loadBatch", "decode ops")
	}
	return &batch, nil
}

func validateBatch(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(opsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return errors.WrapInvalid(err, "CLI", "validateBatch", "schema validation")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(fmt.Errorf("%s", strings.Join(msgs, "; ")),
		"CLI", "validateBatch", "ops file does not match schema")
}

func runApply(ctx context.Context, a *app, user string, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.WrapInvalid(fmt.Errorf("usage: apply <ops file>"), "CLI", "apply", "parse arguments")
	}
	batch, err := loadBatch(args[0])
	if err != nil {
		return err
	}
	results, err := applyBatch(ctx, a, user, batch)
	if werr := writeJSON(out, results); werr != nil && err == nil {
		err = werr
	}
	return err
}

// applyBatch runs ops in order and stops at the first failure. The batch
// user, when set, overrides the command line user.
func applyBatch(ctx context.Context, a *app, user string, batch *Batch) ([]opResult, error) {
	if batch.User != "" {
		user = batch.User
	}
	results := make([]opResult, 0, len(batch.Ops))
	for _, op := range batch.Ops {
		err := applyOp(ctx, a, user, op)
		res := opResult{Op: op.Op, Name: op.Name, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
		if err != nil {
			a.logger.Error("Model operation failed", "op", op.Op, "name", op.Name, "user", user, "error", err)
			return results, err
		}
		a.logger.Info("Model operation applied", "op", op.Op, "name", op.Name, "user", user)
	}
	return results, nil
}

func applyOp(ctx context.Context, a *app, user string, op Op) error {
	m := a.manager
	var err error
	switch op.Op {
	case "addForm":
		_, err = m.AddForm(ctx, user, op.Name, op.Type, op.Opts, op.Info)
	case "addFormProp":
		_, err = m.AddFormProp(ctx, user, op.Form, op.Name, op.Type, op.Opts, op.Info)
	case "addUnivProp":
		_, err = m.AddUnivProp(ctx, user, op.Name, op.Type, op.Opts, op.Info)
	case "addTagProp":
		_, err = m.AddTagProp(ctx, user, op.Name, op.Type, op.Opts, op.Info)
	case "delForm":
		err = m.DelForm(ctx, user, op.Name)
	case "delFormProp":
		err = m.DelFormProp(ctx, user, op.Form, op.Name)
	case "delUnivProp":
		err = m.DelUnivProp(ctx, user, op.Name)
	case "delTagProp":
		err = m.DelTagProp(ctx, user, op.Name)
	default:
		err = errors.NewModelError(errors.KindUnsupported, op.Op, "unknown operation")
	}
	return err
}
