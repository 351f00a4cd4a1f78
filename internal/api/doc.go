// Package api — HTTP API сервиса: создание sessions, просмотр их
// состояния и задач, приём внешних решений по планам и ad-hoc
// discovery агентов.
//
// API не крутит машину состояний: создание session пишет строку в БД
// и публикует событие, решение по плану записывается в БД и будит
// роутер событием. При недоступном RabbitMQ всё подхватит polling.
package api
