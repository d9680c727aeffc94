package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/randtable/rtengine"
)

type rollConfig struct {
	docPath  string
	table    string
	template string
	count    int
	format   string
}

type rollOutput struct {
	Text         string            `json:"text"`
	Placeholders map[string]string `json:"placeholders,omitempty"`
}

func runRoll(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRollFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingTarget, err)
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

	ctx := context.Background()
	for i := 0; i < cfg.count; i++ {
		var result *rtengine.Result
		if cfg.table != "" {
			result, err = engine.RollTable(ctx, cfg.table)
		} else {
			result, err = engine.RollTemplate(ctx, cfg.template)
		}
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgRollFailed, err)
			return ExitCodeError
		}

		if cfg.format == OutputFormatJSON {
			if code := writeRollJSON(result, stdout); code != ExitCodeSuccess {
				return code
			}
			continue
		}
		fmt.Fprintln(stdout, result.Text)
		if i < cfg.count-1 {
			fmt.Fprintln(stdout, RollTextSeparator)
		}
	}

	return ExitCodeSuccess
}

func writeRollJSON(result *rtengine.Result, stdout io.Writer) int {
	out := rollOutput{Text: result.Text, Placeholders: result.Placeholders}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return ExitCodeError
	}
	fmt.Fprintln(stdout, string(b))
	return ExitCodeSuccess
}

func parseRollFlags(args []string) (*rollConfig, error) {
	fs := flag.NewFlagSet(CmdNameRoll, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &rollConfig{}
	fs.StringVar(&cfg.docPath, FlagDoc, "", "")
	fs.StringVar(&cfg.docPath, FlagDocShort, "", "")
	fs.StringVar(&cfg.table, FlagTable, "", "")
	fs.StringVar(&cfg.table, FlagTableShort, "", "")
	fs.StringVar(&cfg.template, FlagTemplate, "", "")
	fs.IntVar(&cfg.count, FlagCount, FlagDefaultCount, "")
	fs.IntVar(&cfg.count, FlagCountShort, FlagDefaultCount, "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.docPath == "" {
		return nil, errors.New(ErrMsgMissingDoc)
	}
	if cfg.table == "" && cfg.template == "" {
		return nil, errors.New(ErrMsgMissingTarget)
	}
	if cfg.table != "" && cfg.template != "" {
		return nil, errors.New(ErrMsgBothTargets)
	}
	if cfg.count <= 0 {
		return nil, errors.New(ErrMsgInvalidCount)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}
