package kafka

// ActivityTopic is the Kafka topic carrying social activity events.
const ActivityTopic = "social.activity"
