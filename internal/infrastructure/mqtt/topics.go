package mqtt

// TopicPrefixSystem is the base for service status topics.
const TopicPrefixSystem = "graylogic/system"

// StatusTopic returns the retained online/offline topic for a client.
//
// Example: graylogic/system/status/graylogic-rf
func StatusTopic(clientID string) string {
	return TopicPrefixSystem + "/status/" + clientID
}
