package version

// Version is the server version reported by the version command.
const Version = "0.1.0"
