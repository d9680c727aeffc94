package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/randtable/rtengine"
)

type validateConfig struct {
	docPath string
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingDoc, err)
		return ExitCodeUsageError
	}

	data, err := readInput(cfg.docPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	if _, err := rtengine.Load(data); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDocFailed, err)
		return ExitCodeError
	}

	fmt.Fprintln(stdout, ValidateTextSuccess)
	return ExitCodeSuccess
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := flag.NewFlagSet(CmdNameValidate, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &validateConfig{}
	fs.StringVar(&cfg.docPath, FlagDoc, "", "")
	fs.StringVar(&cfg.docPath, FlagDocShort, "", "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.docPath == "" {
		return nil, errors.New(ErrMsgMissingDoc)
	}
	return cfg, nil
}
