// ABOUTME: mixcheck event protocol package
// ABOUTME: Defines review event messages and the WebSocket watch client
// Package protocol implements the JSON event stream a review server pushes
// to its watchers.
//
// Every frame is a Message envelope {type, payload}. Payload types are
// fixed per message type: FileEvent, AnalysisEvent, ReviewEvent.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8937", Name: "watcher"})
//	err := client.Watch(ctx, func(msg protocol.Message) {
//	    fmt.Println(msg.Type)
//	})
package protocol
