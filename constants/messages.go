package constants

const (
	MsgNoDevice  = "There is no device connected to this computer~"
	MsgChoose    = "please select a device to run test case"
	MsgCancelled = `you have choice "Cancel", this program will quit.`
)
