// Package protocol defines the wire format shared by the server and client.
//
// Every value is a JSON object on its own line. Unions are externally tagged:
// the variant name is the object's only key.
//
//	{"Join":{"group":"rust"}}
//	{"Post":{"group":"rust","message":"hello"}}
//	{"Message":{"group":"rust","message":"hello"}}
//	{"Dropped":{"count":3}}
//	{"Error":{"message":"Not a member of 'go'"}}
package protocol
