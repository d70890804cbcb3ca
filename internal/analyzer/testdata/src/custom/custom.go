package custom

import "log"

func report(ssnValue string) {
	log.Print("password updated")

	log.Print("ssn: 123-45-6789") // want `keyword "ssn" in message text`

	log.Print("record saved", ssnValue) // want `keyword "ssn" in argument ssnValue`
}
