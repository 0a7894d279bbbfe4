// Package protocol defines the wire format spoken between livectl clients and
// the session command server.
//
// Each message is one JSON value terminated by a newline:
//
//	{"type":"get_track_info","params":{"track_index":0},"id":"1"}\n
//
// and each request yields exactly one response:
//
//	{"id":"1","status":"success","result":{...}}\n
//	{"id":"1","status":"error","message":"track 4: index out of range"}\n
//
// Requests are decoded into a closed set of Command variants with typed,
// defaulted parameters, so handlers never see a raw parameter map.
package protocol
