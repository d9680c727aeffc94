package main

// Command names
const (
	CmdNameRoll     = "roll"
	CmdNameList     = "list"
	CmdNameValidate = "validate"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagDoc      = "doc"
	FlagTable    = "table"
	FlagTemplate = "template"
	FlagCount    = "count"
	FlagFormat   = "format"
	FlagSeparator = "separator"
	FlagMaxDepth = "max-depth"
)

// Flag names - short form
const (
	FlagDocShort    = "D"
	FlagTableShort  = "t"
	FlagCountShort  = "n"
	FlagFormatShort = "F"
)

// Flag default values
const (
	FlagDefaultFormat = "text"
	FlagDefaultCount  = 1
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Exit codes
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeUsageError = 2
	ExitCodeInputError = 3
)

// Error messages
const (
	ErrMsgMissingDoc      = "document path required"
	ErrMsgMissingTarget   = "either --table or --template is required"
	ErrMsgBothTargets     = "--table and --template are mutually exclusive"
	ErrMsgReadFileFailed  = "failed to read document"
	ErrMsgLoadDocFailed   = "failed to load document"
	ErrMsgRollFailed      = "roll failed"
	ErrMsgInvalidFormat   = "invalid output format"
	ErrMsgInvalidCount    = "count must be a positive integer"
)

// Help text
const (
	HelpMainUsage = `rtengine - random-table document roller

Usage:
    rtengine <command> [options]

Commands:
    roll        Roll a table or run a template from a document
    list        List the tables and templates defined in a document
    validate    Validate a document without rolling anything
    version     Show version information
    help        Show help for a command

Use "rtengine help <command>" for more information about a command.`

	HelpRollUsage = `Roll a table or run a template from a document

Usage:
    rtengine roll -D <file> (-t <table> | --template <template>) [options]

Options:
    -D, --doc <file>        Document file (use "-" for stdin)
    -t, --table <id>        Table id to roll
        --template <id>     Template id to run
    -n, --count <n>         Number of times to roll (default 1)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    rtengine roll -D world.json -t encounter
    rtengine roll -D world.json --template npc -n 5
    cat world.json | rtengine roll -D - -t loot -F json`

	HelpListUsage = `List the tables and templates defined in a document

Usage:
    rtengine list -D <file> [options]

Options:
    -D, --doc <file>        Document file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)`

	HelpValidateUsage = `Validate a document without rolling anything

Usage:
    rtengine validate -D <file>

Options:
    -D, --doc <file>        Document file (use "-" for stdin)`

	HelpVersionUsage = `Show version information

Usage:
    rtengine version`

	HelpHelpUsage = `Show help for a command

Usage:
    rtengine help [command]`
)

// Format string constants
const (
	FmtErrorWithCause = "%s: %v\n"
	FmtErrorWithDetail = "%s: %s\n"
	FmtNewline        = "\n"
)

// Roll output text templates
const (
	RollTextSeparator = "---"
)

// List output text templates
const (
	ListTextTablesHeader    = "Tables:"
	ListTextTemplatesHeader = "Templates:"
	ListTextEntryFormat     = "  %s"
)

// Validate output text
const (
	ValidateTextSuccess = "document is valid"
)
