// meta/meta.go
package meta

// GO_ROUTINES defines the number of goroutines a batch spreads its trials over.
const GO_ROUTINES = 8

// CHECKPOINT_TRIALS defines how many trials run between progress checkpoints.
const CHECKPOINT_TRIALS = 1000

// SEQUENCE_LENGTH defines the number of candidates in a stopping problem.
const SEQUENCE_LENGTH = 100

// RACE_TRIALS defines the trials each contestant plays in a stopping race.
const RACE_TRIALS = 2000

// RACE_ROUND defines the trials between standings updates in a stopping race.
const RACE_ROUND = 40

// STARTING_BALANCE defines the capital every fund starts with.
const STARTING_BALANCE = 100.0

// FUND_STEPS defines the number of deals in a fund path.
const FUND_STEPS = 50

// FUND_SIMS defines the number of fund paths behind a leaderboard row.
const FUND_SIMS = 100

// CAREER_DEALS defines the number of deals in a career streak simulation.
const CAREER_DEALS = 100

// AUDIT_SAMPLE defines the number of ventures in an audit report.
const AUDIT_SAMPLE = 50
