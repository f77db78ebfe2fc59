package config

const (
	// TopicPipelineCompleted is the NSQ topic carrying completion
	// notifications for finished pipeline runs.
	TopicPipelineCompleted = "pipeline.completed"

	// ChannelNotifyDelivery is the consumer channel used by the
	// notification delivery worker.
	ChannelNotifyDelivery = "delivery"
)
