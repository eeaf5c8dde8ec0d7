// Package campaign runs launched campaigns.
//
// The Executor walks a campaign's enrolled leads in batches. Sends within a
// batch run concurrently and the whole batch is joined before the next one
// starts. Every email is checked by the outbound watchdog before a vendor
// sees it. Individual send failures are counted on the execution and never
// stop the campaign.
//
// Executions are tracked in memory only. Repository implementations live in
// repository/postgres/.
package campaign
