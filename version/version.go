package version

// Version is overridden at build time with
// -ldflags "-X dupfinder/version.Version=x.y.z".
var Version = "dev"
