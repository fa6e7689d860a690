// Package alerts evaluates threshold rules against scored cells and delivers
// webhook notifications (Slack, Teams, PagerDuty, generic HTTP) when a rule
// fires or resolves. Rules are simple "field op value" expressions and come
// from the config file; Reload supports hot-swapping them.
package alerts
