// Copyright (c) 2017 Michele Bertasi
// Licensed under the MIT License
// Vendored from github.com/mbrt/gmailctl

package gmcli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"

	"github.com/google/go-jsonnet"
	"github.com/pkg/errors"
)

// ReadJsonnet evaluates a jsonnet config buffer and decodes it strictly.
//
// The path is used to resolve imports.
func ReadJsonnet(p string, buf []byte) (Config, error) {
	var res Config
	vm := jsonnet.MakeVM()
	vm.Importer(&jsonnet.FileImporter{
		JPaths: []string{path.Dir(p)},
	})
	jstr, err := vm.EvaluateAnonymousSnippet(p, string(buf))
	if err != nil {
		return res, fmt.Errorf("parsing jsonnet: %w", err)
	}
	err = jsonUnmarshalStrict([]byte(jstr), &res)
	return res, err
}

func jsonUnmarshalStrict(buf []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jctx := contextFromJSONErr(err, buf)
		if jctx == "" {
			return err
		}
		return fmt.Errorf("%w\nJSON context:\n%s", err, jctx)
	}
	return nil
}

func contextFromJSONErr(err error, buf []byte) string {
	var (
		jserr  *json.SyntaxError
		juerr  *json.UnmarshalTypeError
		offset int
	)
	switch {
	case errors.As(err, &jserr):
		offset = int(jserr.Offset)
	case errors.As(err, &juerr):
		offset = int(juerr.Offset)
	default:
		return ""
	}

	if offset < 0 || offset >= len(buf) {
		return ""
	}

	// Three lines either side of the offset.
	begin, end, count := 0, len(buf), 0
	for i := offset; i >= 0 && count < 3; i-- {
		if buf[i] == '\n' {
			begin = i + 1
			count++
		}
	}
	count = 0
	for i := offset; i < len(buf) && count < 3; i++ {
		if buf[i] == '\n' {
			end = i
			count++
		}
	}
	return string(buf[begin:end])
}
