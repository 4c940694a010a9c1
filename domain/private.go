package domain

// privateRoomSeparator joins the two user ids of a direct conversation.
const privateRoomSeparator = "_private_"

// PrivateRoomID derives the canonical room id for a two-party private
// conversation. The two user ids are ordered before joining, so both
// directions of the exchange address the same message history.
func PrivateRoomID(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + privateRoomSeparator + userB
}
