package shopping

type IDGenerator interface {
	NewID() string
}
