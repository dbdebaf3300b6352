package main

const (
	exampleDeviceAddress = "00:07:80:2d:9e:f2"
	deviceAddressNote    = "Device address format: six hex octets separated by colons, most significant first\n  Use 'bgatt scan' to discover devices"
)
