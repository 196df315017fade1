// Package bridge connects a guest script runtime to host functions over its
// stdio.
//
// The guest calls a host function by writing a frame to its stderr:
//
//	\x00HOSTASYNC:{"id":"1","fn":"helloAsync","args":[{"louder":true},{"$fn":"cb1"}]}\x00
//
// Arguments are JSON; {"$fn": id} stands for a guest callback and
// {"$buffer": base64} for a byte buffer. The call runs on the loop and the
// host answers with one line on the guest's stdin:
//
//	{"id":"1"}
//	{"id":"1","data":...}
//	{"id":"1","error":"...","type":"TypeError"}
//
// Each later invocation of a guest callback produces another line:
//
//	{"callback":"cb1","args":[null,"...threads are busy async bees...hello world!!!!"]}
//
// A call's response line is always written before any callback line the
// call itself produced. Everything else the guest writes to stderr is kept
// and available from Stderr.
package bridge
