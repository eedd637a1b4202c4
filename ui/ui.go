// ui serves a small status page for a grading node, showing the recent
// executions the node has run and their verdicts. It is intended for
// operators glancing at a judge host, not for students.
package ui

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/arctir/verdict/slib"
)

const (
	DefaultAddr = ":8080"
	resultPath  = "/result/"
	runPath     = "/run"
)

type UI struct {
	executor slib.Executor
	history  *slib.History
	addr     string
}

// Data is what the index view renders.
type Data struct {
	Records []slib.Record
}

// DetailKV is one field of a result rendered on the detail view.
type DetailKV struct {
	Field string
	Value string
}

// New returns a UI that executes through executor and remembers outcomes in
// history. When addr is empty, [DefaultAddr] is used.
func New(executor slib.Executor, history *slib.History, addr string) *UI {
	if addr == "" {
		addr = DefaultAddr
	}
	return &UI{
		executor: executor,
		history:  history,
		addr:     addr,
	}
}

// RunUI serves the status page until the process exits.
func (ui *UI) RunUI() error {
	http.HandleFunc("/", ui.handleRecent)
	http.HandleFunc(resultPath, ui.handleResultDetails)
	http.HandleFunc(runPath, ui.handleRun)

	log.Printf("serving at %s", ui.addr)
	return http.ListenAndServe(ui.addr, nil)
}

// handleRun executes the submitted path under the submitted limits and
// records the outcome. Input and output stay on the node's own standard
// streams; this page is for operators poking at a judge host, so the
// verdict is the interesting part.
func (ui *UI) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	path := r.FormValue("path")
	if path == "" {
		writeFailure(w, fmt.Errorf("no executable path provided"))
		return
	}
	timeLimit, _ := strconv.Atoi(r.FormValue("time_limit"))
	memoryLimit, _ := strconv.Atoi(r.FormValue("memory_limit"))

	res, err := ui.executor.Execute(path, slib.ExecConfig{
		TimeLimit:   timeLimit,
		MemoryLimit: memoryLimit,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	ui.history.Add(path, *res)
	log.Printf("ran %s: %s", path, res.Code)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ui *UI) handleRecent(w http.ResponseWriter, r *http.Request) {
	t, err := createTemplate(recentView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	err = t.Execute(w, Data{Records: ui.history.Recent()})
	if err != nil {
		writeFailure(w, err)
	}
}

func (ui *UI) handleResultDetails(w http.ResponseWriter, r *http.Request) {
	idxString := strings.TrimPrefix(r.URL.Path, resultPath)
	idx, err := strconv.Atoi(idxString)
	if err != nil {
		writeFailure(w, err)
		return
	}

	records := ui.history.Recent()
	if idx < 0 || idx >= len(records) {
		writeFailure(w, fmt.Errorf("result does not exist"))
		return
	}
	t, err := createTemplate(resultDetailView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	err = t.Execute(w, records[idx])
	if err != nil {
		writeFailure(w, err)
	}
}

// getResultDetails returns a slice containing the key and value for each
// field of the result. It does this by performing reflection over
// [slib.ExecResult] so the view never goes stale against the struct.
func getResultDetails(record slib.Record) []DetailKV {
	result := []DetailKV{
		{"Path", record.Path},
		{"When", record.When.String()},
	}
	t := reflect.TypeOf(record.Result)
	v := reflect.ValueOf(record.Result)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result = append(result, DetailKV{field.Name, fmt.Sprintf("%v", v.Field(i).Interface())})
	}

	return result
}

// createTemplate returns a final template with your template (temp)
// specified and wrapped with the shared header and footer.
func createTemplate(temp string) (*template.Template, error) {
	t, err := template.New("response").
		Funcs(template.FuncMap{"rDeets": getResultDetails}).
		Parse(uiHeader + temp + uiFooter)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func writeFailure(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	t, terr := createTemplate(errorView)
	if terr != nil {
		return
	}
	t.Execute(w, err.Error())
}
