package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExpander(vals map[string]string, last int) *expander {
	return &expander{
		lookup: func(name string) (string, bool) {
			v, ok := vals[name]
			return v, ok
		},
		lastStatus: last,
	}
}

func TestExpand(t *testing.T) {
	exp := testExpander(map[string]string{"HOME": "/home/u", "A": "1"}, 127)

	cases := map[string]string{
		"plain":             "plain",
		"$HOME":             "/home/u",
		"${HOME}/bin":       "/home/u/bin",
		"$A$A":              "11",
		"x${A}y":            "x1y",
		"$?":                "127",
		`'$HOME'`:           "$HOME",
		`"$HOME"`:           "/home/u",
		`"'$A'"`:            "'1'",
		`'>'`:               ">",
		`\$A`:               "$A",
		`"\$A"`:             "$A",
		`"a\b"`:             `a\b`,
		`"$MISSING"`:        "",
		`"cost: $A dollar"`: "cost: 1 dollar",
		`'cost: $A'`:        "cost: $A",
	}

	for in, want := range cases {
		got, err := parse(in, exp)
		require.NoError(t, err, in)
		assert.Equal(t, []string{want}, got.words, in)
	}
}

func TestParse(t *testing.T) {
	exp := testExpander(map[string]string{"HOME": "/home/u", "LOG": "out.log"}, 0)

	cases := map[string]struct {
		line string
		want *simpleCommand
	}{
		"blank": {
			line: "   ",
			want: &simpleCommand{},
		},
		"words": {
			line: `cd "my dir"`,
			want: &simpleCommand{words: []string{"cd", "my dir"}},
		},
		"assignments": {
			line: "A=1 B=$HOME",
			want: &simpleCommand{assignments: []assignment{{"A", "1"}, {"B", "/home/u"}}},
		},
		"assignment before command": {
			line: "A=1 env B=2",
			want: &simpleCommand{
				assignments: []assignment{{"A", "1"}},
				words:       []string{"env", "B=2"},
			},
		},
		"invalid assignment is a word": {
			line: "1A=1",
			want: &simpleCommand{words: []string{"1A=1"}},
		},
		"assignments see earlier ones": {
			line: "A=1 B=$A",
			want: &simpleCommand{assignments: []assignment{{"A", "1"}, {"B", "1"}}},
		},
		"single quoted assignment": {
			line: "export X='$HOME'",
			want: &simpleCommand{words: []string{"export", "X=$HOME"}},
		},
		"unset expansion vanishes": {
			line: "cd $NOPE",
			want: &simpleCommand{words: []string{"cd"}},
		},
		"quoted unset expansion stays": {
			line: `cd "$NOPE"`,
			want: &simpleCommand{words: []string{"cd", ""}},
		},
		"quoted operator is a word": {
			line: "export -p '>' notes",
			want: &simpleCommand{words: []string{"export", "-p", ">", "notes"}},
		},
		"separate operand": {
			line: "jobs > out",
			want: &simpleCommand{
				words:        []string{"jobs"},
				redirections: []redirection{{fd: 1, op: redirectOut, target: "out"}},
			},
		},
		"attached operands": {
			line: "export -p >>$LOG 2>err <in",
			want: &simpleCommand{
				words: []string{"export", "-p"},
				redirections: []redirection{
					{fd: 1, op: redirectAppend, target: "out.log"},
					{fd: 2, op: redirectOut, target: "err"},
					{fd: 0, op: redirectIn, target: "in"},
				},
			},
		},
		"dup": {
			line: "jobs >out 2>&1",
			want: &simpleCommand{
				words: []string{"jobs"},
				redirections: []redirection{
					{fd: 1, op: redirectOut, target: "out"},
					{fd: 2, op: redirectDup, dupFd: 1},
				},
			},
		},
		"redirection only": {
			line: ">out",
			want: &simpleCommand{redirections: []redirection{{fd: 1, op: redirectOut, target: "out"}}},
		},
		"background": {
			line: "sleep 10 &",
			want: &simpleCommand{words: []string{"sleep", "10"}, background: true},
		},
		"background attached": {
			line: "sleep 10&",
			want: &simpleCommand{words: []string{"sleep", "10"}, background: true},
		},
		"dup then background": {
			line: "make 2>&1 &",
			want: &simpleCommand{
				words:        []string{"make"},
				redirections: []redirection{{fd: 2, op: redirectDup, dupFd: 1}},
				background:   true,
			},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := parse(tc.line, exp)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	exp := testExpander(nil, 0)

	cases := map[string]struct {
		line    string
		wantErr error
		wantMsg string
	}{
		"unterminated quote":   {line: "cd 'oops", wantErr: errSyntax, wantMsg: "without closing quote"},
		"missing operand":      {line: "jobs >", wantErr: errSyntax, wantMsg: "must be followed by a word"},
		"bare background":      {line: "&", wantErr: errSyntax, wantMsg: "can only immediately follow a statement"},
		"bad dup":              {line: "jobs 2>&x", wantErr: errBadDescriptor, wantMsg: "x: bad file descriptor"},
		"two commands":         {line: "cd; jobs", wantErr: errSyntax, wantMsg: "one command per line"},
		"pipeline":             {line: "jobs | cat", wantErr: errSyntax, wantMsg: "unsupported command"},
		"default expansion":    {line: "cd ${A:-x}", wantErr: errSyntax, wantMsg: "bad substitution"},
		"command substitution": {line: "cd $(pwd)", wantErr: errSyntax, wantMsg: "unsupported expansion"},
		"empty target":         {line: "jobs >$NOPE", wantErr: errAmbiguous, wantMsg: "ambiguous redirect"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := parse(tc.line, exp)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}
