package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	oracleMu  sync.Mutex
	oracleLog *log.Logger
)

// SetOracleWriter installs the destination for raw oracle request/response
// dumps. Passing nil disables dumping.
func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

type oracleSection struct {
	Title string
	Body  string
}

func logOracle(kind, model string, sections []oracleSection) {
	oracleMu.Lock()
	dst := oracleLog
	oracleMu.Unlock()
	if dst == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE]")
	if kind != "" {
		b.WriteString("[" + kind + "]")
	}
	if model != "" {
		b.WriteString("[" + model + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- " + title + " ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	dst.Print(b.String())
}

func DumpOracleRequest(model, systemPrompt, userPrompt string) {
	logOracle("request", model, []oracleSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func DumpOracleResponse(model, raw string) {
	logOracle("response", model, []oracleSection{{Title: "RAW", Body: raw}})
}
