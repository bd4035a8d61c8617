package metadata

/** Definition for the entry point of a job. Results are sent on out. */
type JobStart func(params interface{}, out chan<- interface{}) error

/** Definition for completion of a job. */
type JobOnComplete func(result interface{})

/**
 * @brief Describes a job to be run by the job system.
 */
type JobTask struct {
	/** @brief Data passed to the entry point upon execution. */
	InputParams interface{}
	/** @brief Invoked when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked with the job result when OnStart succeeds. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked with the error when OnStart fails. Optional. */
	OnFailure JobOnComplete
	/** @brief Invoked after either outcome. Optional. */
	OnCompletionCallback func()
}
