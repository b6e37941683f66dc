// Package async provides safe goroutine execution for fire-and-forget work.
//
// SafeGo wraps a background task with panic recovery, a per-task timeout and
// structured error logging. The billing client uses it for work that must
// never surface errors into user-facing flows, such as refreshing usage
// figures after a metering report.
package async
