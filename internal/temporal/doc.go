// Package temporal runs literature surveys as background jobs on Temporal.
//
// The API server creates a job row and calls JobClient.StartSurveyJob, which
// starts SurveyJobWorkflow with the workflow ID "survey-job-<job id>". The
// worker process executes the workflow and its activities:
//
//   - MarkJobRunning moves the job to running
//   - RunSurvey calls the survey feature
//   - CompleteJob stores the survey result, or FailJob stores the error message
//
// Every status change is published as a job event.
//
// Workflow definitions live in the workflows subpackage and activity
// implementations in the activities subpackage; this package holds the
// client, the worker setup and the shared input types.
package temporal
