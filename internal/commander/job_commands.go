package commander

import (
	"fmt"
	"strings"
	"time"

	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/evaluation"
	"github.com/jorge-cardeno/inteligencia-artificial-proyectos/internal/jobs"
)

func (c *Commander) listAllJobs() {
	all := c.jobManager.ListJobs()
	if len(all) == 0 {
		c.println("No jobs found")
		return
	}

	c.println(c.cyan("Background Jobs:"))
	c.println(strings.Repeat("-", 90))
	c.printf("%-38s %-8s %-10s %-9s %s\n", "Job ID", "Type", "Status", "Progress", "Description")
	c.println(strings.Repeat("-", 90))

	for _, job := range all {
		c.printf("%-38s %-8s %-10s %-9s %s\n",
			job.ID, job.Type, c.statusColor(job.GetStatus())(string(job.GetStatus())),
			fmt.Sprintf("%.0f%%", job.GetProgress()*100), job.Description)
	}
}

func (c *Commander) statusColor(status jobs.JobStatus) func(a ...any) string {
	switch status {
	case jobs.JobCompleted:
		return c.green
	case jobs.JobFailed:
		return c.red
	case jobs.JobRunning:
		return c.cyan
	default:
		return c.yellow
	}
}

func (c *Commander) showJobStatus(jobID string) {
	job, exists := c.jobManager.GetJob(jobID)
	if !exists {
		c.printf("%s Job not found: %s\n", c.red("✗"), jobID)
		return
	}

	status := job.GetStatus()
	c.printf("\n%s\n", c.cyan("Job Details:"))
	c.printf("ID:          %s\n", job.ID)
	c.printf("Type:        %s\n", job.Type)
	c.printf("Status:      %s\n", c.statusColor(status)(string(status)))
	c.printf("Progress:    %.0f%%\n", job.GetProgress()*100)
	c.printf("Start Time:  %s\n", job.StartTime.Format("15:04:05"))
	c.printf("Duration:    %s\n", job.Duration().Round(time.Millisecond))
	if err := job.GetError(); err != nil {
		c.printf("Error:       %s\n", c.red(err.Error()))
	}
	if m, ok := job.GetResult().(*evaluation.ClassificationMetrics); ok && m != nil {
		c.printf("Result:\n%s", m.FormatMetrics())
	}
}

func (c *Commander) cancelJob(jobID string) {
	if err := c.jobManager.CancelJob(jobID); err != nil {
		c.printf("%s %v\n", c.red("✗"), err)
		return
	}
	c.printf("%s Job cancelled: %s\n", c.green("✓"), jobID)
}

func (c *Commander) showJobLogs(jobID string) {
	job, exists := c.jobManager.GetJob(jobID)
	if !exists {
		c.printf("%s Job not found: %s\n", c.red("✗"), jobID)
		return
	}

	logs := job.GetLogs()
	if len(logs) == 0 {
		c.println("No logs available")
		return
	}

	c.printf("\n%s\n", c.cyan(fmt.Sprintf("Logs for job %s:", jobID)))
	for _, line := range logs {
		c.println(line)
	}
}
