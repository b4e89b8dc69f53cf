package endpoints

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"container-health/internal/monitor"
	"container-health/internal/util"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type dashboardView struct {
	Report *monitor.Report
	Error  string
}

// Dashboard renders an HTML page with a fresh sample on every load.
type Dashboard struct {
	logger  *util.ServiceLogger
	monitor *monitor.Monitor
}

func (d *Dashboard) Init(mon *monitor.Monitor, logger *util.ServiceLogger) {
	d.monitor = mon
	d.logger = logger
}

func (d *Dashboard) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	var view dashboardView
	status := http.StatusOK

	report, err := d.monitor.Sample(r.Context())
	if err != nil {
		d.logger.LogEvent(util.LOG_LEVEL_ERROR, "Dashboard sample failed. Err -", err)
		view.Error = err.Error()
		status = http.StatusInternalServerError
		if latest, ok := d.monitor.Latest(); ok {
			view.Report = &latest
		}
	} else {
		view.Report = &report
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		d.logger.LogEvent(util.LOG_LEVEL_ERROR, "Dashboard render failed. Err -", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
