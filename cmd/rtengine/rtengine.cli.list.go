package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/randtable/rtengine"
)

type listConfig struct {
	docPath string
	format  string
}

type listOutput struct {
	Tables    []string `json:"tables"`
	Templates []string `json:"templates"`
}

func runList(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseListFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingDoc, err)
		return ExitCodeUsageError
	}

	data, err := readInput(cfg.docPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	doc, err := rtengine.Load(data)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDocFailed, err)
		return ExitCodeError
	}

	engine, err := rtengine.NewEngine(doc)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgLoadDocFailed, err)
		return ExitCodeError
	}
	out := listOutput{Tables: engine.ListTables(), Templates: engine.ListTemplates()}

	if cfg.format == OutputFormatJSON {
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(stdout, string(b))
		return ExitCodeSuccess
	}

	fmt.Fprintln(stdout, ListTextTablesHeader)
	for _, id := range out.Tables {
		fmt.Fprintf(stdout, ListTextEntryFormat+FmtNewline, id)
	}
	fmt.Fprintln(stdout, ListTextTemplatesHeader)
	for _, id := range out.Templates {
		fmt.Fprintf(stdout, ListTextEntryFormat+FmtNewline, id)
	}
	return ExitCodeSuccess
}

func parseListFlags(args []string) (*listConfig, error) {
	fs := flag.NewFlagSet(CmdNameList, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &listConfig{}
	fs.StringVar(&cfg.docPath, FlagDoc, "", "")
	fs.StringVar(&cfg.docPath, FlagDocShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.docPath == "" {
		return nil, errors.New(ErrMsgMissingDoc)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}
