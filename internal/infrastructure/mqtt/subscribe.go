package mqtt

import "fmt"

// Subscribe routes messages matching topic to handler. The filter may use
// the + and # wildcards; the bridge subscribes to one raw topic per
// receiver with "graylogic/raw/rf433/+".
//
// The handler is remembered and re-subscribed after every reconnect. A
// second Subscribe to the same filter replaces the first handler.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.handlers[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	var err error
	if token.WaitTimeout(defaultPublishTimeout) {
		err = token.Error()
	} else {
		err = fmt.Errorf("no SUBACK within %v", defaultPublishTimeout)
	}
	if err != nil {
		c.mu.Lock()
		delete(c.handlers, topic)
		c.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}
