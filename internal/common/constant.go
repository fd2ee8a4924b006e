package common

// AuthorizationHeaderName is the HTTP header used to carry the bearer token
// on outbound requests and on the push-channel handshake.
const AuthorizationHeaderName = "Authorization"

// PushChannelPath is the server path of the upload-progress push channel.
const PushChannelPath = "/ws/upload-progress"
