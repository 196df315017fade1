// Package standalone implements helloAsync, an asynchronous host function
// that is not attached to any object.
package standalone
