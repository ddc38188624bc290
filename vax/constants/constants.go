package constants

// This is set during compilation.  See build_and_package.sh in the ops repo
var Version = "latest"

const SourceApp = "vax"

// Default chunk size for reading and writing derived status rows.
const DefaultBatchSize = 10000

// Defaults for the periodic jobs, standard cron syntax.
const (
	DefaultCatchUpSchedule = "0 2 * * *"
	DefaultCleanupSchedule = "30 2 * * *"
)

const (
	WorkerApplication = "worker"
	SyncApplication   = "sync"
)
