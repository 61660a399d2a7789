package rosbridge

// A topic and its wire type, as sent in subscribe and advertise frames.
type topicDeclaration struct {
	topic    string
	wireType string
}

// Subscribers and publisher declarations keyed by topic. Topics are kept in registration order so
// handshake frames are sent in a deterministic order.
//
// topicRegistry is not safe for concurrent use: it is guarded by the Connection mutex.
type topicRegistry struct {
	subscribedTopics []string
	// Wire type announced in the subscribe frame: the one of the first registered subscriber
	subscribedTypes  map[string]string
	subscribers      map[string][]Subscriber
	advertisedTopics []string
	publishers       map[string]string
}

func newTopicRegistry() *topicRegistry {
	return &topicRegistry{
		subscribedTopics: []string{},
		subscribedTypes:  map[string]string{},
		subscribers:      map[string][]Subscriber{},
		advertisedTopics: []string{},
		publishers:       map[string]string{},
	}
}

// Add the subscriber to the topic unless it is already registered. first is true when the
// subscriber is the first one registered for the topic.
func (r *topicRegistry) addSubscriber(topic string, wireType string, s Subscriber) (added bool, first bool) {
	current, exists := r.subscribers[topic]
	for _, registered := range current {
		if registered == s {
			return false, false
		}
	}
	if !exists {
		r.subscribedTopics = append(r.subscribedTopics, topic)
		r.subscribedTypes[topic] = wireType
	}
	r.subscribers[topic] = append(current, s)
	return true, !exists
}

// Copy of the topic subscribers in registration order.
func (r *topicRegistry) subscribersOf(topic string) []Subscriber {
	return append([]Subscriber(nil), r.subscribers[topic]...)
}

// Record the publisher declaration if the topic has none. Returns false if the topic was
// already declared, in which case the first declaration is kept.
func (r *topicRegistry) declarePublisher(topic string, wireType string) bool {
	if _, exists := r.publishers[topic]; exists {
		return false
	}
	r.advertisedTopics = append(r.advertisedTopics, topic)
	r.publishers[topic] = wireType
	return true
}

// Wire type declared for the topic, if any.
func (r *topicRegistry) publisherType(topic string) (string, bool) {
	wireType, ok := r.publishers[topic]
	return wireType, ok
}

func (r *topicRegistry) subscriptions() []topicDeclaration {
	decls := make([]topicDeclaration, 0, len(r.subscribedTopics))
	for _, topic := range r.subscribedTopics {
		decls = append(decls, topicDeclaration{topic: topic, wireType: r.subscribedTypes[topic]})
	}
	return decls
}

func (r *topicRegistry) advertisements() []topicDeclaration {
	decls := make([]topicDeclaration, 0, len(r.advertisedTopics))
	for _, topic := range r.advertisedTopics {
		decls = append(decls, topicDeclaration{topic: topic, wireType: r.publishers[topic]})
	}
	return decls
}

func (r *topicRegistry) clear() {
	*r = *newTopicRegistry()
}
